package graph

// Op names understood by the engine.
const (
	OpPlaceholder = "Placeholder"
	OpConst       = "Const"
	OpIdentity    = "Identity"
	OpAdd         = "Add"
	OpSub         = "Sub"
	OpMul         = "Mul"
	OpNeg         = "Neg"
	OpRelu        = "Relu"
	OpSquare      = "Square"
)

// opArity is the number of data inputs each op takes.
var opArity = map[string]int{
	OpPlaceholder: 0,
	OpConst:       0,
	OpIdentity:    1,
	OpAdd:         2,
	OpSub:         2,
	OpMul:         2,
	OpNeg:         1,
	OpRelu:        1,
	OpSquare:      1,
}

// KnownOp reports whether op is supported by the engine.
func KnownOp(op string) bool {
	_, ok := opArity[op]
	return ok
}

// NodeDef is the portable description of one node.
type NodeDef struct {
	Name   string
	Op     string
	Inputs []string
	DType  DType
	Shape  Shape
	// Value holds the payload of Const nodes.
	Value []float64
}

// GraphDef is a portable snapshot of a graph.
type GraphDef struct {
	Version int32
	Nodes   []NodeDef
}

// CurrentVersion is the GraphDef version written by Snapshot.
const CurrentVersion int32 = 1

// Node returns the definition of the named node.
func (d *GraphDef) Node(name string) (NodeDef, bool) {
	name = OpName(name)
	for _, n := range d.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeDef{}, false
}

// Names returns node names in definition order.
func (d *GraphDef) Names() []string {
	names := make([]string, len(d.Nodes))
	for i, n := range d.Nodes {
		names[i] = n.Name
	}
	return names
}

// Clone returns a deep copy of d.
func (d *GraphDef) Clone() *GraphDef {
	if d == nil {
		return nil
	}
	out := &GraphDef{Version: d.Version, Nodes: make([]NodeDef, len(d.Nodes))}
	for i, n := range d.Nodes {
		out.Nodes[i] = NodeDef{
			Name:   n.Name,
			Op:     n.Op,
			Inputs: append([]string(nil), n.Inputs...),
			DType:  n.DType,
			Shape:  n.Shape.Clone(),
			Value:  append([]float64(nil), n.Value...),
		}
	}
	return out
}

// Node is a live element of a Graph.
type Node struct {
	name   string
	op     string
	inputs []*Node
	dtype  DType
	shape  Shape
	value  []float64
}

func (n *Node) Name() string   { return n.name }
func (n *Node) Op() string     { return n.op }
func (n *Node) DType() DType   { return n.dtype }
func (n *Node) Shape() Shape   { return n.shape.Clone() }
func (n *Node) String() string { return n.name + ":0" }

// Inputs returns the node's data inputs.
func (n *Node) Inputs() []*Node {
	return append([]*Node(nil), n.inputs...)
}

// IsPlaceholder reports whether n awaits an external value.
func (n *Node) IsPlaceholder() bool { return n.op == OpPlaceholder }

func (n *Node) def() NodeDef {
	inputs := make([]string, len(n.inputs))
	for i, in := range n.inputs {
		inputs[i] = in.name
	}
	return NodeDef{
		Name:   n.name,
		Op:     n.op,
		Inputs: inputs,
		DType:  n.dtype,
		Shape:  n.shape.Clone(),
		Value:  append([]float64(nil), n.value...),
	}
}
