// Package seqmodel is a small sequential-layer model format stored as YAML,
// with a model.Adapter that builds it into a session.
//
//	name: mlp
//	input: {name: x, dtype: float32, shape: [-1, 4]}
//	layers:
//	  - {name: dense1, type: dense, scale: 0.5, bias: 1}
//	  - {type: relu}
//	output: scores
package seqmodel

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/validation"
)

// FileName is the model file inside a model directory.
const FileName = "model.yaml"

// Layer types.
const (
	LayerDense  = "dense"
	LayerScale  = "scale"
	LayerBias   = "bias"
	LayerRelu   = "relu"
	LayerSquare = "square"
	LayerNeg    = "neg"
)

// Input describes the model's single input.
type Input struct {
	Name  string `yaml:"name" validate:"required"`
	DType string `yaml:"dtype,omitempty" validate:"omitempty,oneof=float32 float64 int32 int64"`
	// Shape uses -1 for unknown dimensions; an empty shape is a scalar
	// unless UnknownRank is set.
	Shape       []int64 `yaml:"shape,omitempty"`
	UnknownRank bool    `yaml:"unknown_rank,omitempty"`
}

// Layer is one element-wise step. Dense computes x*scale + bias.
type Layer struct {
	Name  string  `yaml:"name,omitempty"`
	Type  string  `yaml:"type" validate:"required,oneof=dense scale bias relu square neg"`
	Scale float64 `yaml:"scale,omitempty"`
	Bias  float64 `yaml:"bias,omitempty"`
}

// Model is a sequential model. It implements model.Model.
type Model struct {
	Name   string  `yaml:"name" validate:"required"`
	Input  Input   `yaml:"input"`
	Layers []Layer `yaml:"layers" validate:"min=1,dive"`
	Output string  `yaml:"output" validate:"required"`
}

// Validate checks the model definition.
func (m *Model) Validate() error {
	if err := validation.Validate(m); err != nil {
		return err
	}
	if _, err := m.dtype(); err != nil {
		return errors.InvalidInput("input.dtype", err.Error())
	}
	return nil
}

func (m *Model) dtype() (graph.DType, error) {
	if m.Input.DType == "" {
		return graph.Float32, nil
	}
	return graph.ParseDType(m.Input.DType)
}

func (m *Model) shape() graph.Shape {
	if m.Input.UnknownRank {
		return graph.UnknownShape()
	}
	return graph.MakeShape(m.Input.Shape...)
}

// Save writes the model as dir/model.yaml.
func (m *Model) Save(dir string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Internal(err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IO("write", path, err)
	}
	return nil
}

// Parse decodes and validates a YAML model.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.InvalidInput("model", fmt.Sprintf("parsing yaml: %v", err)).WithCause(err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadFile reads a model from path, which is either a model file or a
// directory containing model.yaml.
func LoadFile(path string) (*Model, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO("read", path, err)
	}
	return Parse(data)
}

// Build adds the model to g and returns its input placeholder and output node.
func (m *Model) Build(g *graph.Graph) (*graph.Node, *graph.Node, error) {
	dtype, err := m.dtype()
	if err != nil {
		return nil, nil, err
	}
	x, err := g.Placeholder(m.Input.Name, dtype, m.shape())
	if err != nil {
		return nil, nil, err
	}

	h := x
	for i, l := range m.Layers {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", l.Type, i)
		}
		h, err = buildLayer(g, h, name, l)
		if err != nil {
			return nil, nil, err
		}
	}

	out, err := g.Identity(h, m.Output)
	if err != nil {
		return nil, nil, err
	}
	return x, out, nil
}

func buildLayer(g *graph.Graph, h *graph.Node, name string, l Layer) (*graph.Node, error) {
	scalar := func(suffix string, v float64) (*graph.Node, error) {
		return g.Const(name+graph.ScopeSeparator+suffix, h.DType(), graph.MakeShape(), v)
	}

	switch l.Type {
	case LayerDense:
		w, err := scalar("scale", l.Scale)
		if err != nil {
			return nil, err
		}
		b, err := scalar("bias", l.Bias)
		if err != nil {
			return nil, err
		}
		m, err := g.Mul(name+graph.ScopeSeparator+"mul", h, w)
		if err != nil {
			return nil, err
		}
		return g.Add(name, m, b)
	case LayerScale:
		w, err := scalar("scale", l.Scale)
		if err != nil {
			return nil, err
		}
		return g.Mul(name, h, w)
	case LayerBias:
		b, err := scalar("bias", l.Bias)
		if err != nil {
			return nil, err
		}
		return g.Add(name, h, b)
	case LayerRelu:
		return g.Apply(graph.OpRelu, name, h)
	case LayerSquare:
		return g.Apply(graph.OpSquare, name, h)
	case LayerNeg:
		return g.Apply(graph.OpNeg, name, h)
	default:
		return nil, errors.InvalidInput("type", fmt.Sprintf("unknown layer type %q", l.Type))
	}
}
