package graph

import (
	"fmt"
	"strconv"

	"github.com/kbukum/gfnkit/errors"
)

// Graph is a mutable computation graph. Nodes are kept in insertion order,
// which is always a valid topological order because a node can only refer
// to nodes that already exist.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	nodes map[string]*Node
	order []*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.order...)
}

// Node looks up a node by name; element names like "x:0" are accepted.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[OpName(name)]
	return n, ok
}

// Resolve is Node with a resolution error for unknown names.
func (g *Graph) Resolve(name string) (*Node, error) {
	n, ok := g.Node(name)
	if !ok {
		return nil, errors.NotFound("element", name)
	}
	return n, nil
}

// Owns reports whether n is an element of g.
func (g *Graph) Owns(n *Node) bool {
	if n == nil {
		return false
	}
	return g.nodes[n.name] == n
}

// Placeholder adds an input node of the given type and shape.
func (g *Graph) Placeholder(name string, dtype DType, shape Shape) (*Node, error) {
	if !dtype.Valid() {
		return nil, errors.InvalidInput("dtype", fmt.Sprintf("placeholder %q has invalid dtype %s", name, dtype))
	}
	return g.add(&Node{name: g.nameFor(name, OpPlaceholder), op: OpPlaceholder, dtype: dtype, shape: shape.Clone()})
}

// Const adds a constant node. A fully defined shape must match len(values).
func (g *Graph) Const(name string, dtype DType, shape Shape, values ...float64) (*Node, error) {
	if !dtype.Valid() {
		return nil, errors.InvalidInput("dtype", fmt.Sprintf("const %q has invalid dtype %s", name, dtype))
	}
	if n := shape.NumElements(); n >= 0 && n != int64(len(values)) {
		return nil, errors.InvalidInput("value",
			fmt.Sprintf("const %q has %d values for shape %s", name, len(values), shape))
	}
	return g.add(&Node{
		name:  g.nameFor(name, OpConst),
		op:    OpConst,
		dtype: dtype,
		shape: shape.Clone(),
		value: append([]float64(nil), values...),
	})
}

// Identity adds a pass-through node named name.
func (g *Graph) Identity(input *Node, name string) (*Node, error) {
	return g.Apply(OpIdentity, name, input)
}

// Add adds an element-wise sum node.
func (g *Graph) Add(name string, a, b *Node) (*Node, error) { return g.Apply(OpAdd, name, a, b) }

// Mul adds an element-wise product node.
func (g *Graph) Mul(name string, a, b *Node) (*Node, error) { return g.Apply(OpMul, name, a, b) }

// Apply adds a node computing op over inputs. An empty name is replaced by a
// unique name derived from op.
func (g *Graph) Apply(op, name string, inputs ...*Node) (*Node, error) {
	arity, ok := opArity[op]
	if !ok {
		return nil, errors.InvalidInput("op", fmt.Sprintf("unsupported op %q", op))
	}
	if arity == 0 {
		return nil, errors.InvalidInput("op", fmt.Sprintf("op %s has no inputs; use its constructor", op))
	}
	if len(inputs) != arity {
		return nil, errors.InvalidInput("inputs", fmt.Sprintf("op %s takes %d inputs, got %d", op, arity, len(inputs)))
	}
	for _, in := range inputs {
		if !g.Owns(in) {
			return nil, errors.NotFound("input", nodeName(in))
		}
	}
	return g.add(&Node{
		name:   g.nameFor(name, op),
		op:     op,
		inputs: append([]*Node(nil), inputs...),
		dtype:  inputs[0].dtype,
		shape:  resultShape(inputs),
	})
}

func (g *Graph) add(n *Node) (*Node, error) {
	if !validNodeName(n.name) {
		return nil, errors.InvalidInput("name", fmt.Sprintf("invalid node name %q", n.name))
	}
	if _, exists := g.nodes[n.name]; exists {
		return nil, errors.AlreadyExists(n.name)
	}
	g.nodes[n.name] = n
	g.order = append(g.order, n)
	return n, nil
}

// nameFor returns name, or a fresh "<op>", "<op>_1", ... when name is empty.
func (g *Graph) nameFor(name, op string) string {
	if name != "" {
		return name
	}
	if _, taken := g.nodes[op]; !taken {
		return op
	}
	for i := 1; ; i++ {
		candidate := op + "_" + strconv.Itoa(i)
		if _, taken := g.nodes[candidate]; !taken {
			return candidate
		}
	}
}

func resultShape(inputs []*Node) Shape {
	if len(inputs) == 1 {
		return inputs[0].shape.Clone()
	}
	a, b := inputs[0].shape, inputs[1].shape
	switch {
	case a.Equal(b):
		return a.Clone()
	case a.Rank() == 0:
		return b.Clone()
	case b.Rank() == 0:
		return a.Clone()
	default:
		return UnknownShape()
	}
}

func nodeName(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.name
}
