package graph

import (
	"github.com/kbukum/gfnkit/errors"
)

// Snapshot exports g as a GraphDef. When prune is set only the nodes
// reachable backward from outputs are kept; otherwise every node is.
// Every output must belong to g.
func (g *Graph) Snapshot(outputs []*Node, prune bool) (*GraphDef, error) {
	for _, out := range outputs {
		if !g.Owns(out) {
			return nil, errors.NotFound("output", nodeName(out))
		}
	}

	keep := func(*Node) bool { return true }
	if prune {
		reachable := Reachable(outputs)
		keep = func(n *Node) bool { return reachable[n] }
	}

	d := &GraphDef{Version: CurrentVersion}
	for _, n := range g.order {
		if keep(n) {
			d.Nodes = append(d.Nodes, n.def())
		}
	}
	return d, nil
}

// Reachable returns the set of nodes reachable backward from outputs,
// outputs included.
func Reachable(outputs []*Node) map[*Node]bool {
	seen := make(map[*Node]bool)
	stack := append([]*Node(nil), outputs...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, n.inputs...)
	}
	return seen
}
