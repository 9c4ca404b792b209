package gfn

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/session"
	"github.com/kbukum/gfnkit/validation"
)

// GraphFunction is an immutable graph definition plus its positional input
// and output names. The input names resolve to placeholder nodes once the
// definition is imported.
type GraphFunction struct {
	def         *graph.GraphDef
	inputNames  []string
	outputNames []string
}

// New builds a GraphFunction from its parts. The definition and name
// slices are copied. Names must be non-blank and unique within each list.
func New(def *graph.GraphDef, inputNames, outputNames []string) (*GraphFunction, error) {
	v := validation.New().
		Custom(def != nil, "graph_def", "is required").
		Names("inputs", inputNames).
		Names("outputs", outputNames)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &GraphFunction{
		def:         def.Clone(),
		inputNames:  cloneNames(inputNames),
		outputNames: cloneNames(outputNames),
	}, nil
}

// GraphDef returns a copy of the graph definition.
func (f *GraphFunction) GraphDef() *graph.GraphDef { return f.def.Clone() }

// InputNames returns a copy of the declared input names.
func (f *GraphFunction) InputNames() []string { return cloneNames(f.inputNames) }

// OutputNames returns a copy of the declared output names.
func (f *GraphFunction) OutputNames() []string { return cloneNames(f.outputNames) }

// NumInputs returns the number of declared inputs.
func (f *GraphFunction) NumInputs() int { return len(f.inputNames) }

// NumOutputs returns the number of declared outputs.
func (f *GraphFunction) NumOutputs() int { return len(f.outputNames) }

// Equal reports whether f and o have the same names and encode to the same
// graph definition bytes.
func (f *GraphFunction) Equal(o *GraphFunction) bool {
	if f == nil || o == nil {
		return f == o
	}
	if !slices.Equal(f.inputNames, o.inputNames) || !slices.Equal(f.outputNames, o.outputNames) {
		return false
	}
	a, errA := f.def.Marshal()
	b, errB := o.def.Marshal()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

func (f *GraphFunction) String() string {
	return fmt.Sprintf("GraphFunction(%d nodes, inputs=%v, outputs=%v)", len(f.def.Nodes), f.inputNames, f.outputNames)
}

var _ session.Function = (*GraphFunction)(nil)

// CaptureOption configures Capture.
type CaptureOption func(*captureOptions)

type captureOptions struct {
	prune bool
}

// WithoutPrune keeps every node of the session's graph instead of only the
// inputs and the nodes the outputs depend on.
func WithoutPrune() CaptureOption {
	return func(o *captureOptions) { o.prune = false }
}

// Capture snapshots part of s's graph as a GraphFunction. Every input must be
// a placeholder and every input and output must belong to s. Names are
// recorded in "name:0" element form.
func Capture(s *session.Session, inputs, outputs []*graph.Node, opts ...CaptureOption) (*GraphFunction, error) {
	o := captureOptions{prune: true}
	for _, opt := range opts {
		opt(&o)
	}
	if s == nil {
		return nil, errors.InvalidInput("session", "nil session")
	}
	for i, in := range inputs {
		if in == nil {
			return nil, errors.InvalidInput(fmt.Sprintf("inputs[%d]", i), "nil node")
		}
		if !in.IsPlaceholder() {
			return nil, errors.NotPlaceholder(in.Name(), in.Op())
		}
	}
	for i, out := range outputs {
		if out == nil {
			return nil, errors.InvalidInput(fmt.Sprintf("outputs[%d]", i), "nil node")
		}
	}

	def, err := s.Export(inputs, outputs, o.prune)
	if err != nil {
		return nil, err
	}
	return New(def, elementNames(inputs), elementNames(outputs))
}

func elementNames(nodes []*graph.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.String()
	}
	return names
}

func cloneNames(names []string) []string {
	if names == nil {
		return []string{}
	}
	return slices.Clone(names)
}
