// Package bootstrap wires a gfnkit application from its configuration.
//
// New initializes, in order, the global logger, the optional OTLP tracer
// and meter providers, the merge metrics, the archive store and a
// compose.Composer over it. Shutdown flushes the providers.
//
//	cfg, _ := config.Load()
//	app, err := bootstrap.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    fn, err := app.Composer.BuildNamed(ctx, "classifier")
//	    if err != nil {
//	        return err
//	    }
//	    return fn.Save(ctx, app.Store, "merged/classifier")
//	})
package bootstrap
