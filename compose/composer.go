package compose

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/gfn"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/observability"
	"github.com/kbukum/gfnkit/store"
)

// DefaultConcurrency bounds the number of archives opened at once.
const DefaultConcurrency = 4

// Composer turns pipelines into merged graph functions.
type Composer struct {
	store       store.Store
	loader      Loader
	metrics     *observability.Metrics
	log         *logger.Logger
	concurrency int
}

// Option configures a Composer.
type Option func(*Composer)

// WithLoader sets the loader used to resolve includes and named pipelines.
func WithLoader(l Loader) Option {
	return func(c *Composer) { c.loader = l }
}

// WithMetrics records merge metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Composer) { c.metrics = m }
}

// WithLogger overrides the "compose" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.log = l
		}
	}
}

// WithConcurrency bounds how many archives are opened in parallel.
func WithConcurrency(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewComposer creates a Composer reading archives from s.
func NewComposer(s store.Store, opts ...Option) *Composer {
	c := &Composer{
		store:       s,
		loader:      MapLoader{},
		log:         logger.Get("compose"),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve flattens p into its ordered stage list. Included pipelines
// contribute their stages first, with named scopes nested under the
// included pipeline's name. Blank scopes stay blank.
func (c *Composer) Resolve(p *Pipeline) ([]StageDef, error) {
	return c.resolve(p, nil)
}

func (c *Composer) resolve(p *Pipeline, stack []string) ([]StageDef, error) {
	for _, name := range stack {
		if name == p.Name {
			return nil, errors.InvalidInput("includes",
				fmt.Sprintf("include cycle: %s -> %s", strings.Join(stack, " -> "), p.Name))
		}
	}
	stack = append(stack, p.Name)

	var stages []StageDef
	for _, name := range p.Includes {
		sub, err := c.loader.Load(name)
		if err != nil {
			return nil, err
		}
		subStages, err := c.resolve(sub, stack)
		if err != nil {
			return nil, err
		}
		for _, st := range subStages {
			if st.Scope != "" {
				st.Scope = graph.Scoped(sub.Name, st.Scope)
			}
			stages = append(stages, st)
		}
	}
	return append(stages, p.Stages...), nil
}

// Build resolves p, opens every stage archive, and merges them in order.
func (c *Composer) Build(ctx context.Context, p *Pipeline) (fn *gfn.GraphFunction, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanCompose)
	defer func() {
		if err != nil {
			observability.SetSpanError(ctx, err)
		}
		span.End()
	}()
	observability.SetSpanAttribute(ctx, observability.AttrPipeline, p.Name)

	defs, err := c.Resolve(p)
	if err != nil {
		return nil, err
	}
	if c.store == nil {
		return nil, errors.InvalidInput("store", "composer has no archive store")
	}
	observability.SetSpanAttribute(ctx, observability.AttrStages, len(defs))

	stages, err := c.open(ctx, defs)
	if err != nil {
		c.log.Error("opening pipeline archives failed",
			logger.Fields(logger.FieldPipeline, p.Name, logger.FieldError, err.Error()))
		return nil, err
	}

	fn, err = gfn.Merge(ctx, stages, gfn.WithMetrics(c.metrics), gfn.WithMergeLogger(c.log))
	if err != nil {
		return nil, err
	}
	c.log.Info("pipeline composed", logger.Fields(
		logger.FieldPipeline, p.Name,
		"stages", len(stages),
		"inputs", fn.NumInputs(),
		"outputs", fn.NumOutputs(),
	))
	return fn, nil
}

// BuildNamed loads the pipeline called name and builds it.
func (c *Composer) BuildNamed(ctx context.Context, name string) (*gfn.GraphFunction, error) {
	p, err := c.loader.Load(name)
	if err != nil {
		return nil, err
	}
	return c.Build(ctx, p)
}

// open reads the stage archives concurrently. The result keeps stage order.
func (c *Composer) open(ctx context.Context, defs []StageDef) ([]gfn.Stage, error) {
	stages := make([]gfn.Stage, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, def := range defs {
		g.Go(func() error {
			fn, err := gfn.Open(gctx, c.store, def.Archive)
			if err != nil {
				if appErr, ok := errors.AsAppError(err); ok {
					return appErr.WithDetail(logger.FieldStage, i)
				}
				return errors.IO("open", def.Archive, err).WithDetail(logger.FieldStage, i)
			}
			c.log.Debug("stage archive opened", logger.Fields(
				logger.FieldStage, i,
				logger.FieldScope, def.Scope,
				logger.FieldArchive, def.Archive,
			))
			stages[i] = gfn.Stage{Scope: def.Scope, Function: fn}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stages, nil
}
