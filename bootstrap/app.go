package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/gfnkit/compose"
	"github.com/kbukum/gfnkit/config"
	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/observability"
	"github.com/kbukum/gfnkit/store"

	// Storage backends register themselves with store.New.
	_ "github.com/kbukum/gfnkit/store/local"
	_ "github.com/kbukum/gfnkit/store/s3"
)

// DefaultGracefulTimeout bounds Shutdown.
const DefaultGracefulTimeout = 15 * time.Second

// App holds the wired components of a gfnkit application.
type App struct {
	Name     string
	Version  string
	Cfg      *config.Config
	Logger   *logger.Logger
	Store    store.Store
	Metrics  *observability.Metrics
	Composer *compose.Composer
	Summary  *Summary

	tracerProvider  *sdktrace.TracerProvider
	meterProvider   *sdkmetric.MeterProvider
	gracefulTimeout time.Duration
	startedAt       time.Time

	onStart []Hook
	onStop  []Hook
}

// New applies defaults to cfg, validates it and wires the application.
// When a step fails, the telemetry providers started so far are shut down.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (app *App, err error) {
	if cfg == nil {
		return nil, errors.InvalidInput("config", "config is nil")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := resolveOptions(opts)
	a := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: DefaultGracefulTimeout,
		startedAt:       time.Now(),
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	if o.logger != nil {
		a.Logger = o.logger
	} else {
		logger.Init(cfg.Logging)
		logger.RegisterDefaults("gfn", "session", "compose", "seqmodel", "config")
		a.Logger = logger.GetGlobalLogger()
	}
	a.Summary = NewSummary(cfg.Name, cfg.Version)

	defer func() {
		if err != nil {
			_ = a.shutdownProviders(context.Background())
		}
	}()

	if err := a.initTelemetry(ctx); err != nil {
		return nil, err
	}

	a.Metrics, err = observability.NewMetrics(observability.Meter(cfg.Name))
	if err != nil {
		return nil, errors.Internal(err)
	}

	if o.store != nil {
		a.Store = o.store
		a.Summary.TrackInfrastructure("store", "custom", true)
	} else {
		a.Store, err = store.New(ctx, cfg.Storage, a.Logger)
		if err != nil {
			return nil, err
		}
		a.Summary.TrackInfrastructure("store", storeDetail(cfg.Storage), true)
	}

	loader := o.loader
	if loader == nil {
		loader = compose.NewFileLoader(cfg.Compose.Dirs...)
		a.Summary.TrackPipelineDirs(cfg.Compose.Dirs)
	}
	a.Composer = compose.NewComposer(a.Store,
		compose.WithLoader(loader),
		compose.WithMetrics(a.Metrics),
		compose.WithLogger(a.Logger.WithComponent("compose")),
		compose.WithConcurrency(cfg.Compose.Concurrency),
	)

	a.Logger.Info("application initialized", logger.Fields(
		"name", a.Name,
		"version", a.Version,
		"storage", cfg.Storage.Provider,
	))
	return a, nil
}

func (a *App) initTelemetry(ctx context.Context) error {
	cfg := a.Cfg
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.TracerConfig())
		if err != nil {
			return errors.Internal(err)
		}
		a.tracerProvider = tp
		a.Summary.TrackInfrastructure("tracing", "otlp "+cfg.Tracing.Endpoint, true)
	}
	if cfg.Metrics.Enabled {
		mc := cfg.MeterConfig()
		mp, err := observability.InitMeter(ctx, &mc)
		if err != nil {
			return errors.Internal(err)
		}
		a.meterProvider = mp
		a.Summary.TrackInfrastructure("metrics", "otlp "+cfg.Metrics.Endpoint, true)
	}
	return nil
}

func storeDetail(cfg store.Config) string {
	if cfg.Provider == store.ProviderS3 {
		return fmt.Sprintf("s3://%s/%s", cfg.Bucket, cfg.Prefix)
	}
	return fmt.Sprintf("%s %s", cfg.Provider, cfg.BasePath)
}

// Health probes the archive store.
func (a *App) Health(ctx context.Context) *store.Report {
	r := store.NewReport(a.Name, a.Version)
	r.Add(store.CheckHealth(ctx, "store", a.Store))
	return r
}

// Start runs the OnStart hooks, checks health and displays the summary.
// An unhealthy store is logged, not returned.
func (a *App) Start(ctx context.Context) error {
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	health := a.Health(ctx)
	for _, c := range health.Stores {
		a.Summary.TrackComponent(c.Store, string(c.Status), c.Status == store.StatusUp)
	}
	if health.Status != store.StatusUp {
		a.Logger.Warn("ready check reported issues", logger.Fields("status", string(health.Status)))
	}

	a.Summary.SetStartupDuration(time.Since(a.startedAt))
	a.Summary.Display(a.Logger)
	return nil
}

// RunTask starts the application, runs task and shuts down. SIGINT and
// SIGTERM cancel the task's context.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("received signal, canceling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.Shutdown(context.Background()); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Shutdown runs the OnStop hooks and flushes the telemetry providers
// within the graceful timeout.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
	defer cancel()

	a.Logger.Info("shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.shutdownProviders(ctx); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	a.Logger.Info("shutdown complete")
	return shutdownErr
}

func (a *App) shutdownProviders(ctx context.Context) error {
	var firstErr error
	if a.meterProvider != nil {
		if err := a.meterProvider.Shutdown(ctx); err != nil {
			a.Logger.Error("meter provider shutdown failed", logger.Fields(logger.FieldError, err.Error()))
			firstErr = err
		}
		a.meterProvider = nil
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			a.Logger.Error("tracer provider shutdown failed", logger.Fields(logger.FieldError, err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
		a.tracerProvider = nil
	}
	return firstErr
}
