package gfn

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/observability"
	"github.com/kbukum/gfnkit/session"
)

// recordSpans installs an in-memory tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func spanNames(r *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range r.Ended() {
		names = append(names, s.Name())
	}
	return names
}

// twoInputFunction captures out = a + b.
func twoInputFunction(t *testing.T) *GraphFunction {
	t.Helper()
	s := session.New()
	g := s.Graph()
	a, _ := g.Placeholder("a", graph.Float64, graph.MakeShape(graph.UnknownDim))
	b, _ := g.Placeholder("b", graph.Float64, graph.MakeShape(graph.UnknownDim))
	sum, _ := g.Add("sum", a, b)
	fn, err := Capture(s, []*graph.Node{a, b}, []*graph.Node{sum})
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

// --- preconditions ---

func TestMerge_Empty(t *testing.T) {
	_, err := Merge(context.Background(), nil)
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestMerge_NilFunction(t *testing.T) {
	_, err := Merge(context.Background(), []Stage{{Scope: "a", Function: affineFunction(t, "x", "y", 1, 0)}, {Scope: "b"}})
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMerge_Identity(t *testing.T) {
	fn := affineFunction(t, "x", "y", 2, 1)
	got, err := Merge(context.Background(), []Stage{{Scope: "only", Function: fn}})
	if err != nil {
		t.Fatal(err)
	}
	if got != fn {
		t.Error("a single stage must be returned unchanged")
	}
}

func TestMerge_ArityMismatch(t *testing.T) {
	recorder := recordSpans(t)
	left := affineFunction(t, "x", "y", 1, 0)
	right := twoInputFunction(t)

	_, err := Merge(context.Background(), []Stage{
		{Scope: "encoder", Function: left},
		{Scope: "head", Function: right},
	})
	if !errors.HasCode(err, errors.ErrCodeArityMismatch) {
		t.Fatalf("expected ARITY_MISMATCH, got %v", err)
	}
	if !strings.Contains(err.Error(), "encoder -> head") {
		t.Errorf("expected both scopes in message, got %v", err)
	}
	if names := spanNames(recorder); len(names) != 1 || names[0] != observability.SpanMerge {
		t.Errorf("no phase may start on validation failure, got spans %v", names)
	}
}

func TestMerge_UnsupportedTopology(t *testing.T) {
	recorder := recordSpans(t)

	// a two-input, one-output unit followed by a one-input unit: arity
	// matches but the first unit is not chainable.
	_, err := Merge(context.Background(), []Stage{
		{Scope: "sum", Function: twoInputFunction(t)},
		{Scope: "", Function: affineFunction(t, "x", "y", 1, 0)},
	})
	if !errors.HasCode(err, errors.ErrCodeUnsupportedTopology) {
		t.Fatalf("expected UNSUPPORTED_TOPOLOGY, got %v", err)
	}
	for _, name := range spanNames(recorder) {
		if name == observability.SpanMergeSignature || name == observability.SpanMergeChain {
			t.Errorf("phase %s started despite invalid topology", name)
		}
	}
}

func TestMerge_MultiInputMiddleUnit(t *testing.T) {
	recorder := recordSpans(t)

	s := session.New()
	g := s.Graph()
	x, _ := g.Placeholder("x", graph.Float64, graph.MakeShape(graph.UnknownDim))
	neg, _ := g.Apply(graph.OpNeg, "neg", x)
	sq, _ := g.Apply(graph.OpSquare, "sq", x)
	split, err := Capture(s, []*graph.Node{x}, []*graph.Node{neg, sq})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Merge(context.Background(), []Stage{
		{Scope: "split", Function: split},
		{Scope: "sum", Function: twoInputFunction(t)},
		{Scope: "scale", Function: affineFunction(t, "x", "y", 2, 0)},
	})
	if !errors.HasCode(err, errors.ErrCodeUnsupportedTopology) {
		t.Fatalf("expected UNSUPPORTED_TOPOLOGY, got %v", err)
	}
	if !strings.Contains(err.Error(), "sum") {
		t.Errorf("expected the middle scope in message, got %v", err)
	}
	for _, name := range spanNames(recorder) {
		if name == observability.SpanMergeSignature || name == observability.SpanMergeChain {
			t.Errorf("phase %s started despite invalid topology", name)
		}
	}
}

func TestMerge_BlankScopeLabelInArityError(t *testing.T) {
	_, err := Merge(context.Background(), []Stage{
		{Function: affineFunction(t, "x", "y", 1, 0)},
		{Function: twoInputFunction(t)},
	})
	if !strings.Contains(err.Error(), "GFN-BLK-0 -> GFN-BLK-1") {
		t.Errorf("expected synthesized scopes in message, got %v", err)
	}
}

// --- chained construction ---

func TestMerge_TwoStagesEvaluateLikeChain(t *testing.T) {
	f1 := affineFunction(t, "x", "y", 2, 1)
	f2 := affineFunction(t, "x", "y", 3, -1)

	merged, err := Merge(context.Background(), []Stage{
		{Scope: "first", Function: f1},
		{Scope: "second", Function: f2},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if got := merged.InputNames(); len(got) != 1 || got[0] != "x:0" {
		t.Errorf("unexpected inputs %v", got)
	}
	if got := merged.OutputNames(); len(got) != 1 || got[0] != "y:0" {
		t.Errorf("expected last stage output names, got %v", got)
	}

	input := []float64{-2, 0, 1.5, 4}
	want := evaluate(t, f2, evaluate(t, f1, input))
	if got := evaluate(t, merged, input); !equalValues(got, want) {
		t.Errorf("merged = %v, chained = %v", got, want)
	}
}

// bareFunction builds a one-op unit declared with plain node names.
func bareFunction(t *testing.T, in, out, op string) *GraphFunction {
	t.Helper()
	s := session.New()
	g := s.Graph()
	x, err := g.Placeholder(in, graph.Float64, graph.MakeShape(graph.UnknownDim))
	if err != nil {
		t.Fatal(err)
	}
	y, err := g.Apply(op, out, x)
	if err != nil {
		t.Fatal(err)
	}
	def, err := s.Export([]*graph.Node{x}, []*graph.Node{y}, true)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := New(def, []string{in}, []string{out})
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestMerge_KeepsDeclaredNameForm(t *testing.T) {
	g1 := bareFunction(t, "x", "y1", graph.OpSquare)
	g2 := bareFunction(t, "y1", "y2", graph.OpNeg)

	merged, err := Merge(context.Background(), []Stage{
		{Scope: "a", Function: g1},
		{Scope: "b", Function: g2},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got := merged.InputNames(); len(got) != 1 || got[0] != "x" {
		t.Errorf("expected inputs [x], got %v", got)
	}
	if got := merged.OutputNames(); len(got) != 1 || got[0] != "y2" {
		t.Errorf("expected outputs [y2], got %v", got)
	}

	input := []float64{-3, 0.5, 2}
	want := evaluate(t, g2, evaluate(t, g1, input))
	if got := evaluate(t, merged, input); !equalValues(got, want) {
		t.Errorf("merged = %v, chained = %v", got, want)
	}
}

func TestMerge_ScopedNodeNames(t *testing.T) {
	f := affineFunction(t, "x", "y", 1, 1)
	merged, err := Merge(context.Background(), []Stage{
		{Scope: "enc", Function: f},
		{Scope: "  ", Function: f},
		{Function: f},
	})
	if err != nil {
		t.Fatal(err)
	}
	def := merged.GraphDef()
	for _, name := range []string{"x", "enc/y", "GFN-BLK-1/y", "GFN-BLK-2/y", "y"} {
		if _, ok := def.Node(name); !ok {
			t.Errorf("expected node %q in %v", name, def.Names())
		}
	}
	for _, name := range []string{"enc/x", "GFN-BLK-1/x"} {
		if _, ok := def.Node(name); ok {
			t.Errorf("rewired placeholder %q should be pruned", name)
		}
	}
	out, _ := def.Node("y")
	if out.Op != graph.OpIdentity || out.Inputs[0] != "GFN-BLK-2/y" {
		t.Errorf("expected identity over the last stage, got %+v", out)
	}

	got := evaluate(t, merged, []float64{1})
	if !equalValues(got, []float64{4}) {
		t.Errorf("expected ((1+1)+1)+1 = 4, got %v", got)
	}
}

func TestMerge_OutputNamesStableAcrossDepth(t *testing.T) {
	f := affineFunction(t, "in", "dense/out", 1, 0)
	for depth := 2; depth <= 4; depth++ {
		stages := make([]Stage, depth)
		for i := range stages {
			stages[i] = Stage{Scope: fmt.Sprintf("layer%d", i), Function: f}
		}
		merged, err := Merge(context.Background(), stages)
		if err != nil {
			t.Fatalf("depth %d: %v", depth, err)
		}
		if got := merged.OutputNames(); len(got) != 1 || got[0] != "dense/out:0" {
			t.Errorf("depth %d: unexpected outputs %v", depth, got)
		}
		s := session.New()
		if _, fetches, err := s.Import(merged, "", nil); err != nil || fetches[0].Name() != "dense/out" {
			t.Errorf("depth %d: output does not resolve unscoped: %v", depth, err)
		}
	}
}

func TestMerge_PreservesPartialInputShape(t *testing.T) {
	s := session.New()
	g := s.Graph()
	x, _ := g.Placeholder("x", graph.Float32, graph.MakeShape(graph.UnknownDim, 3))
	y, _ := g.Apply(graph.OpRelu, "y", x)
	f, err := Capture(s, []*graph.Node{x}, []*graph.Node{y})
	if err != nil {
		t.Fatal(err)
	}

	merged, err := Merge(context.Background(), []Stage{{Scope: "a", Function: f}, {Scope: "b", Function: f}})
	if err != nil {
		t.Fatal(err)
	}
	xd, _ := merged.GraphDef().Node("x")
	if xd.Op != graph.OpPlaceholder || xd.DType != graph.Float32 || !xd.Shape.Equal(graph.MakeShape(graph.UnknownDim, 3)) {
		t.Errorf("placeholder signature not preserved: %+v", xd)
	}
}

func TestMerge_ScopeCollision(t *testing.T) {
	f := affineFunction(t, "x", "y", 1, 0)
	_, err := Merge(context.Background(), []Stage{
		{Scope: "GFN-BLK-1", Function: f},
		{Scope: "", Function: f},
	})
	if !errors.IsCollision(err) {
		t.Fatalf("expected collision error, got %v", err)
	}
}

func TestMerge_Isolation(t *testing.T) {
	reg := session.NewRegistry()
	active := session.New(session.WithLink(reg))
	active.Enter()
	defer active.Exit()
	_, _ = active.Graph().Placeholder("user_input", graph.Float64, graph.MakeShape())

	unrelated := session.New()
	before := unrelated.Graph().Len()
	activeBefore := active.Graph().Len()

	f := affineFunction(t, "x", "y", 2, 0)
	if _, err := Merge(context.Background(), []Stage{{Scope: "a", Function: f}, {Scope: "b", Function: f}}); err != nil {
		t.Fatal(err)
	}

	if reg.Current() != active {
		t.Error("merge changed the registry's current session")
	}
	if active.Graph().Len() != activeBefore || unrelated.Graph().Len() != before {
		t.Error("merge leaked nodes into caller sessions")
	}
	if n := len(f.GraphDef().Nodes); n != 5 {
		t.Errorf("merge mutated its input function: %d nodes", n)
	}
}

func TestMerge_SpansAndMetrics(t *testing.T) {
	recorder := recordSpans(t)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	f := affineFunction(t, "x", "y", 1, 0)
	stages := []Stage{{Scope: "a", Function: f}, {Scope: "b", Function: f}, {Scope: "c", Function: f}}
	if _, err := Merge(context.Background(), stages, WithMetrics(metrics)); err != nil {
		t.Fatal(err)
	}

	names := strings.Join(spanNames(recorder), ",")
	want := strings.Join([]string{observability.SpanMergeSignature, observability.SpanMergeChain, observability.SpanMerge}, ",")
	if names != want {
		t.Errorf("spans = %s, want %s", names, want)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var imports int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != observability.MetricImportTotal {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				imports += dp.Value
			}
		}
	}
	if imports != 4 {
		t.Errorf("expected 1 signature + 3 chain imports, got %d", imports)
	}
}
