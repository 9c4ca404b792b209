package gfn

import (
	"testing"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/session"
)

// --- test helpers ---

// affineFunction captures out = in*scale + bias over a [?] float64 input.
func affineFunction(t *testing.T, in, out string, scale, bias float64) *GraphFunction {
	t.Helper()
	s := session.New()
	g := s.Graph()
	x, err := g.Placeholder(in, graph.Float64, graph.MakeShape(graph.UnknownDim))
	if err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	c, _ := g.Const(out+"_scale", graph.Float64, graph.MakeShape(), scale)
	b, _ := g.Const(out+"_bias", graph.Float64, graph.MakeShape(), bias)
	m, _ := g.Mul(out+"_mul", x, c)
	y, err := g.Add(out, m, b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	fn, err := Capture(s, []*graph.Node{x}, []*graph.Node{y})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return fn
}

// evaluate imports fn into a fresh session and runs it on one input.
func evaluate(t *testing.T, fn *GraphFunction, input []float64) []float64 {
	t.Helper()
	s := session.New()
	feeds, fetches, err := s.Import(fn, "", nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	out, err := s.Graph().Evaluate(map[*graph.Node][]float64{feeds[0]: input}, fetches[:1])
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return out[0]
}

func equalValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- construction ---

func TestNew_Validation(t *testing.T) {
	def := &graph.GraphDef{Version: graph.CurrentVersion}
	tests := []struct {
		name    string
		def     *graph.GraphDef
		inputs  []string
		outputs []string
		wantErr bool
	}{
		{"valid", def, []string{"x:0"}, []string{"y:0"}, false},
		{"no inputs", def, nil, []string{"y:0"}, false},
		{"nil def", nil, []string{"x:0"}, []string{"y:0"}, true},
		{"blank input", def, []string{" "}, []string{"y:0"}, true},
		{"duplicate output", def, []string{"x:0"}, []string{"y:0", "y:0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.def, tt.inputs, tt.outputs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNew_NilInputsBecomeEmpty(t *testing.T) {
	fn, err := New(&graph.GraphDef{}, nil, []string{"y:0"})
	if err != nil {
		t.Fatal(err)
	}
	if fn.InputNames() == nil || len(fn.InputNames()) != 0 {
		t.Errorf("expected empty non-nil inputs, got %#v", fn.InputNames())
	}
}

func TestGraphFunction_AccessorsCopy(t *testing.T) {
	fn := affineFunction(t, "x", "y", 2, 1)

	names := fn.InputNames()
	names[0] = "mutated"
	if fn.InputNames()[0] != "x:0" {
		t.Error("InputNames must return a copy")
	}

	def := fn.GraphDef()
	def.Nodes = nil
	if len(fn.GraphDef().Nodes) == 0 {
		t.Error("GraphDef must return a copy")
	}
}

func TestGraphFunction_Equal(t *testing.T) {
	a := affineFunction(t, "x", "y", 2, 1)
	b := affineFunction(t, "x", "y", 2, 1)
	c := affineFunction(t, "x", "y", 3, 1)
	if !a.Equal(b) {
		t.Error("identical captures should be equal")
	}
	if a.Equal(c) {
		t.Error("different constants should not be equal")
	}
	var nilFn *GraphFunction
	if a.Equal(nilFn) || !nilFn.Equal(nil) {
		t.Error("unexpected nil comparison")
	}
}

// --- capture ---

func TestCapture_Names(t *testing.T) {
	fn := affineFunction(t, "x", "y", 2, 1)
	if got := fn.InputNames(); len(got) != 1 || got[0] != "x:0" {
		t.Errorf("unexpected inputs %v", got)
	}
	if got := fn.OutputNames(); len(got) != 1 || got[0] != "y:0" {
		t.Errorf("unexpected outputs %v", got)
	}
}

func TestCapture_NotPlaceholder(t *testing.T) {
	s := session.New()
	g := s.Graph()
	c, _ := g.Const("c", graph.Float64, graph.MakeShape(), 1)
	y, _ := g.Apply(graph.OpNeg, "y", c)

	_, err := Capture(s, []*graph.Node{c}, []*graph.Node{y})
	if !errors.HasCode(err, errors.ErrCodeNotPlaceholder) {
		t.Fatalf("expected NOT_PLACEHOLDER, got %v", err)
	}
}

func TestCapture_ForeignOutput(t *testing.T) {
	s, other := session.New(), session.New()
	x, _ := s.Graph().Placeholder("x", graph.Float64, graph.MakeShape())
	y, _ := other.Graph().Placeholder("y", graph.Float64, graph.MakeShape())

	if _, err := Capture(s, []*graph.Node{x}, []*graph.Node{y}); !errors.IsResolution(err) {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

func TestCapture_NilNodes(t *testing.T) {
	s := session.New()
	if _, err := Capture(s, []*graph.Node{nil}, nil); !errors.IsValidation(err) {
		t.Errorf("expected validation error for nil input, got %v", err)
	}
	if _, err := Capture(nil, nil, nil); !errors.IsValidation(err) {
		t.Errorf("expected validation error for nil session, got %v", err)
	}
}

func TestCapture_Prune(t *testing.T) {
	s := session.New()
	g := s.Graph()
	x, _ := g.Placeholder("x", graph.Float64, graph.MakeShape())
	y, _ := g.Apply(graph.OpSquare, "y", x)
	_, _ = g.Apply(graph.OpNeg, "unused", x)

	pruned, err := Capture(s, []*graph.Node{x}, []*graph.Node{y})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(pruned.GraphDef().Nodes); n != 2 {
		t.Errorf("expected 2 nodes after pruning, got %d", n)
	}

	full, err := Capture(s, []*graph.Node{x}, []*graph.Node{y}, WithoutPrune())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(full.GraphDef().Nodes); n != 3 {
		t.Errorf("expected 3 nodes without pruning, got %d", n)
	}
}
