package compose

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/gfn"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/session"
	"github.com/kbukum/gfnkit/store/local"
)

// --- helpers ---

func affine(t *testing.T, scale, bias float64) *gfn.GraphFunction {
	t.Helper()
	s := session.New()
	g := s.Graph()
	x, err := g.Placeholder("x", graph.Float64, graph.MakeShape(graph.UnknownDim))
	if err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	c, _ := g.Const("scale", graph.Float64, graph.MakeShape(), scale)
	b, _ := g.Const("bias", graph.Float64, graph.MakeShape(), bias)
	m, _ := g.Mul("mul", x, c)
	y, err := g.Add("y", m, b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	fn, err := gfn.Capture(s, []*graph.Node{x}, []*graph.Node{y})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	return fn
}

func run(t *testing.T, fn *gfn.GraphFunction, input []float64) []float64 {
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

// archiveStore saves the named affine functions into a fresh local store.
func archiveStore(t *testing.T, fns map[string]*gfn.GraphFunction) *local.Store {
	t.Helper()
	st, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	for key, fn := range fns {
		if err := fn.Save(context.Background(), st, key); err != nil {
			t.Fatalf("Save(%q) error = %v", key, err)
		}
	}
	return st
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- parsing ---

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid",
			yaml: "name: p\nstages:\n  - scope: a\n    archive: models/a\n  - archive: models/b\n",
		},
		{
			name: "includes only",
			yaml: "name: p\nincludes: [base]\n",
		},
		{
			name:    "missing name",
			yaml:    "stages:\n  - archive: models/a\n",
			wantErr: true,
		},
		{
			name:    "stage without archive",
			yaml:    "name: p\nstages:\n  - scope: a\n",
			wantErr: true,
		},
		{
			name:    "no stages or includes",
			yaml:    "name: p\n",
			wantErr: true,
		},
		{
			name:    "duplicate includes",
			yaml:    "name: p\nincludes: [base, base]\n",
			wantErr: true,
		},
		{
			name:    "bad yaml",
			yaml:    "name: [p\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.yaml"), "name: top\nstages:\n  - archive: a\n")
	writeFile(t, filepath.Join(dir, "short.yml"), "name: short\nstages:\n  - archive: a\n")
	writeFile(t, filepath.Join(dir, "nested", "deep.yaml"), "name: deep\nstages:\n  - archive: a\n")

	loader := NewFileLoader(dir)
	for _, name := range []string{"top", "short", "deep"} {
		p, err := loader.Load(name)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", name, err)
		}
		if p.Name != name {
			t.Errorf("Load(%q) name = %q", name, p.Name)
		}
	}

	_, err := loader.Load("missing")
	if !errors.IsResolution(err) {
		t.Errorf("expected resolution error, got %v", err)
	}
}

func TestLoadFile_InvalidCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "name: bad\n")

	_, err := LoadFile(path)
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Details["path"] != path {
		t.Errorf("details = %v", appErr.Details)
	}
}

// --- composing ---

func TestComposer_Build(t *testing.T) {
	f1, f2 := affine(t, 2, 1), affine(t, 3, -1)
	st := archiveStore(t, map[string]*gfn.GraphFunction{"models/first": f1, "models/second": f2})

	p, err := Parse([]byte("name: chain\nstages:\n  - scope: first\n    archive: models/first\n  - archive: models/second.gfn\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	fn, err := NewComposer(st).Build(context.Background(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	input := []float64{-1, 0, 2}
	want := run(t, f2, run(t, f1, input))
	if got := run(t, fn, input); !slices.Equal(got, want) {
		t.Errorf("composed = %v, chained = %v", got, want)
	}

	names := fn.GraphDef().Names()
	if !slices.Contains(names, "first/y") || !slices.Contains(names, "GFN-BLK-1/y") {
		t.Errorf("unexpected node names %v", names)
	}
}

func TestComposer_Includes(t *testing.T) {
	st := archiveStore(t, map[string]*gfn.GraphFunction{
		"a": affine(t, 2, 0),
		"b": affine(t, 1, 5),
		"c": affine(t, -1, 0),
	})
	loader := MapLoader{
		"feat": {Name: "feat", Stages: []StageDef{{Scope: "scale", Archive: "a"}, {Archive: "b"}}},
	}
	p := &Pipeline{Name: "full", Includes: []string{"feat"}, Stages: []StageDef{{Scope: "neg", Archive: "c"}}}

	c := NewComposer(st, WithLoader(loader), WithConcurrency(1))
	defs, err := c.Resolve(p)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []StageDef{{Scope: "feat/scale", Archive: "a"}, {Archive: "b"}, {Scope: "neg", Archive: "c"}}
	if !slices.Equal(defs, want) {
		t.Fatalf("Resolve() = %v, want %v", defs, want)
	}

	fn, err := c.Build(context.Background(), p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := run(t, fn, []float64{1, 2}); !slices.Equal(got, []float64{-7, -9}) {
		t.Errorf("composed = %v", got)
	}
	if !slices.Contains(fn.GraphDef().Names(), "feat/scale/y") {
		t.Errorf("expected nested scope in %v", fn.GraphDef().Names())
	}
}

func TestComposer_IncludeCycle(t *testing.T) {
	loader := MapLoader{
		"a": {Name: "a", Includes: []string{"b"}},
		"b": {Name: "b", Includes: []string{"a"}},
	}
	c := NewComposer(nil, WithLoader(loader))

	_, err := c.BuildNamed(context.Background(), "a")
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestComposer_MissingInclude(t *testing.T) {
	c := NewComposer(nil)
	_, err := c.Resolve(&Pipeline{Name: "p", Includes: []string{"nope"}})
	if !errors.IsResolution(err) {
		t.Errorf("expected resolution error, got %v", err)
	}
}

func TestComposer_MissingArchive(t *testing.T) {
	st := archiveStore(t, map[string]*gfn.GraphFunction{"a": affine(t, 1, 0)})
	p := &Pipeline{Name: "p", Stages: []StageDef{{Archive: "a"}, {Archive: "missing"}}}

	_, err := NewComposer(st).Build(context.Background(), p)
	if !errors.IsIO(err) {
		t.Fatalf("expected I/O error, got %v", err)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details["stage"] != 1 {
		t.Errorf("expected failing stage index in details, got %v", appErr.Details)
	}
}

func TestComposer_BuildWithoutStore(t *testing.T) {
	p := &Pipeline{Name: "p", Stages: []StageDef{{Archive: "a"}}}

	_, err := NewComposer(nil).Build(context.Background(), p)
	if !errors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "archive store") {
		t.Errorf("expected store named in message, got %v", err)
	}
}
