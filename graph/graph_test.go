package graph

import (
	"testing"

	"github.com/kbukum/gfnkit/errors"
)

// --- test helpers ---

// affine builds y = x*scale + bias with x a [?] float32 placeholder.
func affine(t *testing.T, g *Graph, x, y string, scale, bias float64) (*Node, *Node) {
	t.Helper()
	in, err := g.Placeholder(x, Float32, MakeShape(UnknownDim))
	if err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	s, err := g.Const(y+"_scale", Float32, MakeShape(), scale)
	if err != nil {
		t.Fatalf("const: %v", err)
	}
	b, err := g.Const(y+"_bias", Float32, MakeShape(), bias)
	if err != nil {
		t.Fatalf("const: %v", err)
	}
	m, err := g.Mul(y+"_mul", in, s)
	if err != nil {
		t.Fatalf("mul: %v", err)
	}
	out, err := g.Add(y, m, b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return in, out
}

// --- construction ---

func TestGraph_AutoNames(t *testing.T) {
	g := New()
	x, _ := g.Placeholder("x", Float32, MakeShape())
	a, err := g.Apply(OpNeg, "", x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := g.Apply(OpNeg, "", x)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name() != "Neg" || b.Name() != "Neg_1" {
		t.Errorf("expected Neg and Neg_1, got %s and %s", a.Name(), b.Name())
	}
}

func TestGraph_DuplicateName(t *testing.T) {
	g := New()
	if _, err := g.Placeholder("x", Float32, MakeShape()); err != nil {
		t.Fatal(err)
	}
	_, err := g.Placeholder("x", Float32, MakeShape())
	if !errors.IsCollision(err) {
		t.Fatalf("expected collision, got %v", err)
	}
}

func TestGraph_ApplyRejectsForeignInput(t *testing.T) {
	g1, g2 := New(), New()
	x, _ := g1.Placeholder("x", Float32, MakeShape())
	_, err := g2.Identity(x, "y")
	if !errors.IsResolution(err) {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

func TestGraph_ApplyArity(t *testing.T) {
	g := New()
	x, _ := g.Placeholder("x", Float32, MakeShape())
	if _, err := g.Apply(OpAdd, "s", x); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := g.Apply("MatMul", "m", x, x); !errors.IsValidation(err) {
		t.Fatalf("expected unsupported op error, got %v", err)
	}
}

func TestGraph_ConstShapeMismatch(t *testing.T) {
	g := New()
	if _, err := g.Const("c", Float32, MakeShape(3), 1, 2); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGraph_Resolve(t *testing.T) {
	g := New()
	x, _ := g.Placeholder("scope/x", Float64, MakeShape(2))
	for _, name := range []string{"scope/x", "scope/x:0"} {
		n, err := g.Resolve(name)
		if err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
		if n != x {
			t.Errorf("resolve %s returned %s", name, n.Name())
		}
	}
	if _, err := g.Resolve("x"); !errors.IsResolution(err) {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

func TestOpName(t *testing.T) {
	tests := map[string]string{
		"x":        "x",
		"x:0":      "x",
		"a/b:12":   "a/b",
		"a:b":      "a:b",
		"trail:":   "trail:",
		" pad:1  ": "pad",
	}
	for in, want := range tests {
		if got := OpName(in); got != want {
			t.Errorf("OpName(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- snapshot ---

func TestSnapshot_Prune(t *testing.T) {
	g := New()
	_, y := affine(t, g, "x", "y", 2, 1)
	if _, err := g.Placeholder("unused", Float32, MakeShape()); err != nil {
		t.Fatal(err)
	}

	full, err := g.Snapshot([]*Node{y}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(full.Nodes) != 6 {
		t.Errorf("expected 6 nodes in full snapshot, got %d", len(full.Nodes))
	}

	pruned, err := g.Snapshot([]*Node{y}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(pruned.Nodes) != 5 {
		t.Errorf("expected 5 nodes in pruned snapshot, got %d: %v", len(pruned.Nodes), pruned.Names())
	}
	if _, ok := pruned.Node("unused"); ok {
		t.Error("pruned snapshot should drop unreachable nodes")
	}
}

func TestSnapshot_ForeignOutput(t *testing.T) {
	g1, g2 := New(), New()
	x, _ := g1.Placeholder("x", Float32, MakeShape())
	if _, err := g2.Snapshot([]*Node{x}, true); !errors.IsResolution(err) {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

// --- levels ---

func TestLevels(t *testing.T) {
	d := &GraphDef{Nodes: []NodeDef{
		{Name: "c", Op: OpAdd, Inputs: []string{"a", "b:0"}},
		{Name: "a", Op: OpPlaceholder},
		{Name: "b", Op: OpNeg, Inputs: []string{"a"}},
	}}
	levels, err := Levels(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 3 || levels[0][0] != "a" || levels[1][0] != "b" || levels[2][0] != "c" {
		t.Errorf("unexpected levels %v", levels)
	}
}

func TestLevels_Cycle(t *testing.T) {
	d := &GraphDef{Nodes: []NodeDef{
		{Name: "a", Op: OpNeg, Inputs: []string{"b"}},
		{Name: "b", Op: OpNeg, Inputs: []string{"a"}},
	}}
	if _, err := Levels(d); !errors.IsValidation(err) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLevels_Duplicate(t *testing.T) {
	d := &GraphDef{Nodes: []NodeDef{{Name: "a", Op: OpPlaceholder}, {Name: "a", Op: OpPlaceholder}}}
	if _, err := Levels(d); !errors.IsValidation(err) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

// --- evaluate ---

func TestEvaluate(t *testing.T) {
	g := New()
	x, y := affine(t, g, "x", "y", 2, 1)
	out, err := g.Evaluate(map[*Node][]float64{x: {1, 2, 3}}, []*Node{y})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{3, 5, 7}
	for i := range want {
		if out[0][i] != want[i] {
			t.Fatalf("expected %v, got %v", want, out[0])
		}
	}
}

func TestEvaluate_MissingFeed(t *testing.T) {
	g := New()
	_, y := affine(t, g, "x", "y", 2, 1)
	if _, err := g.Evaluate(nil, []*Node{y}); !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEvaluate_FeedShape(t *testing.T) {
	g := New()
	x, _ := g.Placeholder("x", Float32, MakeShape(2))
	r, _ := g.Apply(OpRelu, "r", x)
	if _, err := g.Evaluate(map[*Node][]float64{x: {1, 2, 3}}, []*Node{r}); !errors.IsValidation(err) {
		t.Fatalf("expected shape error, got %v", err)
	}
	out, err := g.Evaluate(map[*Node][]float64{x: {-1, 2}}, []*Node{r})
	if err != nil {
		t.Fatal(err)
	}
	if out[0][0] != 0 || out[0][1] != 2 {
		t.Errorf("unexpected relu output %v", out[0])
	}
}

func TestShape(t *testing.T) {
	s := MakeShape(UnknownDim, 3)
	if s.Rank() != 2 || s.IsFullyDefined() || s.NumElements() != -1 {
		t.Errorf("unexpected shape properties for %s", s)
	}
	if s.String() != "(?, 3)" {
		t.Errorf("unexpected string %q", s.String())
	}
	if UnknownShape().Rank() != -1 || UnknownShape().String() != "<unknown>" {
		t.Error("unexpected unknown shape")
	}
	if !MakeShape().Equal(Shape{}) {
		t.Error("scalar shapes should be equal")
	}
	if MakeShape(2, 3).NumElements() != 6 {
		t.Error("expected 6 elements")
	}
}

func TestParseDType(t *testing.T) {
	d, err := ParseDType(" Float64 ")
	if err != nil || d != Float64 {
		t.Fatalf("expected float64, got %v, %v", d, err)
	}
	if _, err := ParseDType("complex64"); err == nil {
		t.Error("expected error for unknown dtype")
	}
	if _, err := ParseDType("invalid"); err == nil {
		t.Error("invalid is not a concrete dtype")
	}
}
