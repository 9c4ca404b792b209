package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/gfnkit/errors"
)

// Import adds every node of d to g, renaming each node n to prefix/n (or
// keeping n when prefix is blank). References inside d to a name present in
// inputMap are rewired to the mapped live node instead; the mapped node in
// d is still imported. Keys of inputMap are original (pre-import) names.
//
// Import is atomic: every check (unknown ops, dangling references, cycles,
// name collisions) runs before g is modified, so a failed import leaves g
// unchanged.
func (g *Graph) Import(d *GraphDef, prefix string, inputMap map[string]*Node) error {
	if d == nil {
		return errors.InvalidInput("graph_def", "nil graph definition")
	}
	prefix = strings.TrimSpace(prefix)

	levels, err := Levels(d)
	if err != nil {
		return err
	}

	byName := make(map[string]*NodeDef, len(d.Nodes))
	for i := range d.Nodes {
		byName[d.Nodes[i].Name] = &d.Nodes[i]
	}

	mapped := make(map[string]*Node, len(inputMap))
	for key, live := range inputMap {
		name := OpName(key)
		if _, ok := byName[name]; !ok {
			return errors.NotFound("mapped input", key)
		}
		if !g.Owns(live) {
			return errors.NotFound("mapped input target", nodeName(live))
		}
		mapped[name] = live
	}

	for _, nd := range d.Nodes {
		if err := checkNodeDef(&nd); err != nil {
			return err
		}
		newName := Scoped(prefix, nd.Name)
		if !validNodeName(newName) {
			return errors.InvalidInput("name", fmt.Sprintf("invalid node name %q", newName))
		}
		if _, exists := g.nodes[newName]; exists {
			return errors.AlreadyExists(newName).WithDetail("prefix", prefix)
		}
		for _, in := range nd.Inputs {
			ref := OpName(in)
			if _, ok := mapped[ref]; ok {
				continue
			}
			if _, ok := byName[ref]; !ok {
				return errors.NotFound("input", in).WithDetail("node", nd.Name)
			}
		}
	}

	rank := make(map[string]int, len(d.Nodes))
	for i, level := range levels {
		for _, name := range level {
			rank[name] = i
		}
	}
	ordered := make([]*NodeDef, 0, len(d.Nodes))
	for i := range d.Nodes {
		ordered = append(ordered, &d.Nodes[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Name] < rank[ordered[j].Name]
	})

	created := make(map[string]*Node, len(ordered))
	batch := make([]*Node, 0, len(ordered))
	for _, nd := range ordered {
		n := &Node{
			name:  Scoped(prefix, nd.Name),
			op:    nd.Op,
			dtype: nd.DType,
			shape: nd.Shape.Clone(),
			value: append([]float64(nil), nd.Value...),
		}
		for _, in := range nd.Inputs {
			ref := OpName(in)
			if live, ok := mapped[ref]; ok {
				n.inputs = append(n.inputs, live)
			} else {
				n.inputs = append(n.inputs, created[ref])
			}
		}
		created[nd.Name] = n
		batch = append(batch, n)
	}

	for _, n := range batch {
		g.nodes[n.name] = n
		g.order = append(g.order, n)
	}
	return nil
}

func checkNodeDef(nd *NodeDef) error {
	arity, ok := opArity[nd.Op]
	if !ok {
		return errors.InvalidInput("op", fmt.Sprintf("node %q has unsupported op %q", nd.Name, nd.Op))
	}
	if len(nd.Inputs) != arity {
		return errors.InvalidInput("inputs",
			fmt.Sprintf("node %q: op %s takes %d inputs, got %d", nd.Name, nd.Op, arity, len(nd.Inputs)))
	}
	if !validNodeName(nd.Name) {
		return errors.InvalidInput("name", fmt.Sprintf("invalid node name %q", nd.Name))
	}
	return nil
}
