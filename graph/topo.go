package graph

import (
	"fmt"

	"github.com/kbukum/gfnkit/errors"
)

// Levels groups the nodes of d by dependency level using Kahn's algorithm.
// Nodes within a level only depend on nodes of earlier levels. References to
// names outside d are ignored. Returns a validation error on duplicate node
// names or a cycle.
func Levels(d *GraphDef) ([][]string, error) {
	inDegree := make(map[string]int, len(d.Nodes))
	dependents := make(map[string][]string) // from -> [to...]

	for _, n := range d.Nodes {
		if _, dup := inDegree[n.Name]; dup {
			return nil, errors.InvalidInput("graph_def", fmt.Sprintf("duplicate node %q", n.Name))
		}
		inDegree[n.Name] = 0
	}

	for _, n := range d.Nodes {
		for _, in := range n.Inputs {
			from := OpName(in)
			if _, ok := inDegree[from]; !ok {
				continue
			}
			inDegree[n.Name]++
			dependents[from] = append(dependents[from], n.Name)
		}
	}

	// Level 0 in definition order keeps the result deterministic.
	var queue []string
	for _, n := range d.Nodes {
		if inDegree[n.Name] == 0 {
			queue = append(queue, n.Name)
		}
	}

	var levels [][]string
	visited := 0

	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, name := range queue {
			for _, dep := range dependents[name] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(d.Nodes) {
		return nil, errors.InvalidInput("graph_def",
			fmt.Sprintf("cycle detected, processed %d of %d nodes", visited, len(d.Nodes)))
	}

	return levels, nil
}
