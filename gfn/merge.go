package gfn

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/observability"
	"github.com/kbukum/gfnkit/session"
)

// BlankScopeFormat names the scope of a stage whose scope is blank.
const BlankScopeFormat = "GFN-BLK-%d"

// Stage is one (scope, function) entry of a merge sequence.
type Stage struct {
	Scope    string
	Function *GraphFunction
}

// MergeOption configures Merge.
type MergeOption func(*mergeOptions)

type mergeOptions struct {
	metrics *observability.Metrics
	log     *logger.Logger
}

// WithMetrics records merge and import metrics on m.
func WithMetrics(m *observability.Metrics) MergeOption {
	return func(o *mergeOptions) { o.metrics = m }
}

// WithMergeLogger overrides the "gfn" component logger.
func WithMergeLogger(l *logger.Logger) MergeOption {
	return func(o *mergeOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// signature is the recovered type of one input of the first stage.
type signature struct {
	name  string
	dtype graph.DType
	shape graph.Shape
}

// Merge chains stages into one GraphFunction: the outputs of each stage feed
// the inputs of the next, positionally. Every stage except the last must
// have exactly one input, and adjacent stages must agree on arity. Each
// stage's nodes are imported under its scope, or GFN-BLK-{i} when the scope
// is blank. The result keeps the first stage's input names and exposes the
// last stage's outputs under their original, unscoped names.
//
// All validation happens before any session is created. A single stage is
// returned unchanged.
func Merge(ctx context.Context, stages []Stage, opts ...MergeOption) (*GraphFunction, error) {
	o := mergeOptions{log: logger.Get("gfn")}
	for _, opt := range opts {
		opt(&o)
	}

	oc := observability.NewOperationContext("gfnkit", "merge", o.metrics)
	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanMerge)
	observability.SetSpanAttribute(ctx, observability.AttrStages, len(stages))

	fn, err := merge(ctx, stages, &o)
	oc.EndOperation(ctx, span, err)

	status := "ok"
	if err != nil {
		status = "error"
		o.log.Error("merge failed", logger.Fields("stages", len(stages), logger.FieldError, err.Error()))
	}
	o.metrics.RecordMerge(ctx, len(stages), status, oc.Duration())
	return fn, err
}

func merge(ctx context.Context, stages []Stage, o *mergeOptions) (*GraphFunction, error) {
	if err := checkChain(stages); err != nil {
		return nil, err
	}
	if len(stages) == 1 {
		return stages[0].Function, nil
	}

	sigs, err := recoverSignature(ctx, stages[0].Function, o)
	if err != nil {
		return nil, err
	}
	return chain(ctx, stages, sigs, o)
}

// checkChain validates the merge preconditions.
func checkChain(stages []Stage) error {
	if len(stages) == 0 {
		return errors.InvalidInput("stages", "merge needs at least one stage")
	}
	for i, st := range stages {
		if st.Function == nil {
			return errors.InvalidInput(fmt.Sprintf("stages[%d]", i), "graph function is nil")
		}
	}
	for i := 0; i+1 < len(stages); i++ {
		left, right := stages[i], stages[i+1]
		if left.Function.NumOutputs() != right.Function.NumInputs() {
			return errors.ArityMismatch(stageLabel(i, left.Scope), stageLabel(i+1, right.Scope),
				left.Function.NumOutputs(), right.Function.NumInputs())
		}
		if left.Function.NumInputs() != 1 {
			return errors.UnsupportedTopology(stageLabel(i, left.Scope), left.Function.NumInputs())
		}
	}
	return nil
}

// recoverSignature imports the first stage verbatim into a throwaway session
// and records each input's name, type and shape.
func recoverSignature(ctx context.Context, first *GraphFunction, o *mergeOptions) ([]signature, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanMergeSignature)
	defer span.End()

	s := session.New(session.WithLogger(o.log))
	var sigs []signature
	err := s.Scope(func(s *session.Session) error {
		feeds, _, err := s.Import(first, "", nil)
		if err != nil {
			return err
		}
		o.metrics.RecordImport(ctx, "signature")
		sigs = make([]signature, len(feeds))
		for i, feed := range feeds {
			sigs[i] = signature{name: feed.Name(), dtype: feed.DType(), shape: feed.Shape()}
		}
		return nil
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	return sigs, nil
}

// chain builds the merged graph in a fresh session.
func chain(ctx context.Context, stages []Stage, sigs []signature, o *mergeOptions) (*GraphFunction, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanMergeChain)
	defer span.End()

	s := session.New(session.WithLogger(o.log))
	var fn *GraphFunction
	err := s.Scope(func(s *session.Session) error {
		g := s.Graph()
		placeholders := make([]*graph.Node, len(sigs))
		for i, sig := range sigs {
			p, err := g.Placeholder(sig.name, sig.dtype, sig.shape)
			if err != nil {
				return err
			}
			placeholders[i] = p
		}

		prev := placeholders
		for i, st := range stages {
			scope := strings.TrimSpace(st.Scope)
			if scope == "" {
				scope = fmt.Sprintf(BlankScopeFormat, i)
			}
			o.log.Info("merging stage", logger.Fields(logger.FieldStage, i, logger.FieldScope, scope))

			inputMap := make(map[string]*graph.Node, len(prev))
			for j, name := range st.Function.InputNames() {
				inputMap[name] = prev[j]
			}
			_, fetches, err := s.Import(st.Function, scope, inputMap)
			if err != nil {
				return err
			}
			o.metrics.RecordImport(ctx, "chain")
			prev = fetches
		}

		last := stages[len(stages)-1].Function
		outputs := make([]*graph.Node, len(prev))
		for i, name := range last.OutputNames() {
			out, err := g.Identity(prev[i], graph.OpName(name))
			if err != nil {
				return err
			}
			outputs[i] = out
		}

		def, err := s.Export(placeholders, outputs, true)
		if err != nil {
			return err
		}
		observability.SetSpanAttribute(ctx, observability.AttrNodes, len(def.Nodes))
		fn, err = New(def, stages[0].Function.InputNames(), last.OutputNames())
		return err
	})
	if err != nil {
		observability.SetSpanError(ctx, err)
		return nil, err
	}
	return fn, nil
}

func stageLabel(i int, scope string) string {
	if scope = strings.TrimSpace(scope); scope != "" {
		return scope
	}
	return fmt.Sprintf(BlankScopeFormat, i)
}
