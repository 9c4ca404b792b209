package graph

import (
	"fmt"
	"math"

	"github.com/kbukum/gfnkit/errors"
)

// Evaluate computes fetches given values for the placeholders they depend
// on. Values are flat element slices; binary ops broadcast single-element
// operands.
func (g *Graph) Evaluate(feeds map[*Node][]float64, fetches []*Node) ([][]float64, error) {
	for n := range feeds {
		if !g.Owns(n) {
			return nil, errors.NotFound("feed", nodeName(n))
		}
	}
	for _, n := range fetches {
		if !g.Owns(n) {
			return nil, errors.NotFound("fetch", nodeName(n))
		}
	}

	e := &evaluator{feeds: feeds, memo: make(map[*Node][]float64)}
	out := make([][]float64, len(fetches))
	for i, n := range fetches {
		v, err := e.eval(n)
		if err != nil {
			return nil, err
		}
		out[i] = append([]float64(nil), v...)
	}
	return out, nil
}

type evaluator struct {
	feeds map[*Node][]float64
	memo  map[*Node][]float64
}

func (e *evaluator) eval(n *Node) ([]float64, error) {
	if v, ok := e.memo[n]; ok {
		return v, nil
	}
	if v, ok := e.feeds[n]; ok {
		if want := n.shape.NumElements(); want >= 0 && int64(len(v)) != want {
			return nil, errors.InvalidInput(n.name,
				fmt.Sprintf("fed %d values for shape %s", len(v), n.shape))
		}
		e.memo[n] = v
		return v, nil
	}

	args := make([][]float64, len(n.inputs))
	for i, in := range n.inputs {
		v, err := e.eval(in)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	var (
		v   []float64
		err error
	)
	switch n.op {
	case OpPlaceholder:
		return nil, errors.InvalidInput(n.name, "placeholder has no fed value")
	case OpConst:
		v = n.value
	case OpIdentity:
		v = args[0]
	case OpNeg:
		v = unary(args[0], func(x float64) float64 { return -x })
	case OpRelu:
		v = unary(args[0], func(x float64) float64 { return math.Max(x, 0) })
	case OpSquare:
		v = unary(args[0], func(x float64) float64 { return x * x })
	case OpAdd:
		v, err = binary(n.name, args[0], args[1], func(a, b float64) float64 { return a + b })
	case OpSub:
		v, err = binary(n.name, args[0], args[1], func(a, b float64) float64 { return a - b })
	case OpMul:
		v, err = binary(n.name, args[0], args[1], func(a, b float64) float64 { return a * b })
	default:
		return nil, errors.InvalidInput("op", fmt.Sprintf("cannot evaluate op %q", n.op))
	}
	if err != nil {
		return nil, err
	}
	e.memo[n] = v
	return v, nil
}

func unary(x []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = f(v)
	}
	return out
}

func binary(name string, a, b []float64, f func(a, b float64) float64) ([]float64, error) {
	switch {
	case len(a) == len(b):
		out := make([]float64, len(a))
		for i := range a {
			out[i] = f(a[i], b[i])
		}
		return out, nil
	case len(a) == 1:
		out := make([]float64, len(b))
		for i := range b {
			out[i] = f(a[0], b[i])
		}
		return out, nil
	case len(b) == 1:
		out := make([]float64, len(a))
		for i := range a {
			out[i] = f(a[i], b[0])
		}
		return out, nil
	default:
		return nil, errors.InvalidInput(name,
			fmt.Sprintf("incompatible operand sizes %d and %d", len(a), len(b)))
	}
}
