package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// DType is the element type of a node's value.
type DType int32

const (
	InvalidDType DType = iota
	Float32
	Float64
	Int32
	Int64
	Bool
)

var dtypeNames = map[DType]string{
	InvalidDType: "invalid",
	Float32:      "float32",
	Float64:      "float64",
	Int32:        "int32",
	Int64:        "int64",
	Bool:         "bool",
}

func (d DType) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return "dtype(" + strconv.Itoa(int(d)) + ")"
}

// Valid reports whether d is a concrete element type.
func (d DType) Valid() bool {
	_, ok := dtypeNames[d]
	return ok && d != InvalidDType
}

// ParseDType parses the lower-case name of a dtype, e.g. "float32".
func ParseDType(s string) (DType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range dtypeNames {
		if name == s && d != InvalidDType {
			return d, nil
		}
	}
	return InvalidDType, fmt.Errorf("graph: unknown dtype %q", s)
}

// UnknownDim marks a dimension whose size is not known until a value is fed.
const UnknownDim int64 = -1

// Shape is a possibly partial tensor shape. A zero Shape is a scalar.
type Shape struct {
	Dims        []int64
	UnknownRank bool
}

// MakeShape returns a shape with the given dims; use UnknownDim for unknown sizes.
func MakeShape(dims ...int64) Shape {
	return Shape{Dims: append([]int64(nil), dims...)}
}

// UnknownShape returns a shape of unknown rank.
func UnknownShape() Shape {
	return Shape{UnknownRank: true}
}

// Rank returns the number of dims, or -1 when the rank is unknown.
func (s Shape) Rank() int {
	if s.UnknownRank {
		return -1
	}
	return len(s.Dims)
}

// IsFullyDefined reports whether the rank and every dim are known.
func (s Shape) IsFullyDefined() bool {
	if s.UnknownRank {
		return false
	}
	for _, d := range s.Dims {
		if d < 0 {
			return false
		}
	}
	return true
}

// NumElements returns the element count, or -1 if the shape is not fully defined.
func (s Shape) NumElements() int64 {
	if !s.IsFullyDefined() {
		return -1
	}
	n := int64(1)
	for _, d := range s.Dims {
		n *= d
	}
	return n
}

// Equal reports whether two shapes are identical, including unknown dims.
func (s Shape) Equal(o Shape) bool {
	if s.UnknownRank || o.UnknownRank {
		return s.UnknownRank == o.UnknownRank
	}
	if len(s.Dims) != len(o.Dims) {
		return false
	}
	for i := range s.Dims {
		if s.Dims[i] != o.Dims[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	return Shape{Dims: append([]int64(nil), s.Dims...), UnknownRank: s.UnknownRank}
}

func (s Shape) String() string {
	if s.UnknownRank {
		return "<unknown>"
	}
	parts := make([]string, len(s.Dims))
	for i, d := range s.Dims {
		if d < 0 {
			parts[i] = "?"
		} else {
			parts[i] = strconv.FormatInt(d, 10)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
