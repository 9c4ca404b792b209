package graph

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers. They are part of the persisted format; never renumber.
const (
	fieldGraphNode    protowire.Number = 1
	fieldGraphVersion protowire.Number = 2

	fieldNodeName  protowire.Number = 1
	fieldNodeOp    protowire.Number = 2
	fieldNodeInput protowire.Number = 3
	fieldNodeDType protowire.Number = 4
	fieldNodeShape protowire.Number = 5
	fieldNodeValue protowire.Number = 6

	fieldShapeDim         protowire.Number = 1
	fieldShapeUnknownRank protowire.Number = 2
)

// Marshal encodes d in the protobuf wire format. The encoding is
// deterministic: equal definitions produce equal bytes.
func (d *GraphDef) Marshal() ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("graph: marshal nil GraphDef")
	}
	var b []byte
	for i := range d.Nodes {
		b = protowire.AppendTag(b, fieldGraphNode, protowire.BytesType)
		b = protowire.AppendBytes(b, appendNode(nil, &d.Nodes[i]))
	}
	if d.Version != 0 {
		b = protowire.AppendTag(b, fieldGraphVersion, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.Version))
	}
	return b, nil
}

func appendNode(b []byte, n *NodeDef) []byte {
	b = protowire.AppendTag(b, fieldNodeName, protowire.BytesType)
	b = protowire.AppendString(b, n.Name)
	b = protowire.AppendTag(b, fieldNodeOp, protowire.BytesType)
	b = protowire.AppendString(b, n.Op)
	for _, in := range n.Inputs {
		b = protowire.AppendTag(b, fieldNodeInput, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	if n.DType != InvalidDType {
		b = protowire.AppendTag(b, fieldNodeDType, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(n.DType))
	}
	b = protowire.AppendTag(b, fieldNodeShape, protowire.BytesType)
	b = protowire.AppendBytes(b, appendShape(nil, n.Shape))
	if len(n.Value) > 0 {
		var packed []byte
		for _, v := range n.Value {
			packed = protowire.AppendFixed64(packed, math.Float64bits(v))
		}
		b = protowire.AppendTag(b, fieldNodeValue, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func appendShape(b []byte, s Shape) []byte {
	if s.UnknownRank {
		b = protowire.AppendTag(b, fieldShapeUnknownRank, protowire.VarintType)
		return protowire.AppendVarint(b, 1)
	}
	if len(s.Dims) > 0 {
		var packed []byte
		for _, d := range s.Dims {
			packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(d))
		}
		b = protowire.AppendTag(b, fieldShapeDim, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

// Unmarshal decodes a GraphDef written by Marshal. Unknown fields are skipped.
func Unmarshal(b []byte) (*GraphDef, error) {
	d := &GraphDef{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, wireError("graph", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldGraphNode && typ == protowire.BytesType:
			raw, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, wireError("graph node", protowire.ParseError(m))
			}
			node, err := unmarshalNode(raw)
			if err != nil {
				return nil, err
			}
			d.Nodes = append(d.Nodes, node)
			n = m
		case num == fieldGraphVersion && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, wireError("graph version", protowire.ParseError(m))
			}
			d.Version = int32(v)
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, wireError("graph", protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return d, nil
}

func unmarshalNode(b []byte) (NodeDef, error) {
	var nd NodeDef
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nd, wireError("node", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldNodeName && typ == protowire.BytesType:
			nd.Name, n = protowire.ConsumeString(b)
		case num == fieldNodeOp && typ == protowire.BytesType:
			nd.Op, n = protowire.ConsumeString(b)
		case num == fieldNodeInput && typ == protowire.BytesType:
			var in string
			in, n = protowire.ConsumeString(b)
			nd.Inputs = append(nd.Inputs, in)
		case num == fieldNodeDType && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			nd.DType = DType(v)
		case num == fieldNodeShape && typ == protowire.BytesType:
			var raw []byte
			raw, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				s, err := unmarshalShape(raw)
				if err != nil {
					return nd, err
				}
				nd.Shape = s
			}
		case num == fieldNodeValue && typ == protowire.BytesType:
			var raw []byte
			raw, n = protowire.ConsumeBytes(b)
			for len(raw) > 0 && n >= 0 {
				v, m := protowire.ConsumeFixed64(raw)
				if m < 0 {
					return nd, wireError("node value", protowire.ParseError(m))
				}
				nd.Value = append(nd.Value, math.Float64frombits(v))
				raw = raw[m:]
			}
		case num == fieldNodeValue && typ == protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			nd.Value = append(nd.Value, math.Float64frombits(v))
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nd, wireError("node", protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nd, nil
}

func unmarshalShape(b []byte) (Shape, error) {
	var s Shape
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return s, wireError("shape", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldShapeDim && typ == protowire.BytesType:
			var raw []byte
			raw, n = protowire.ConsumeBytes(b)
			for len(raw) > 0 && n >= 0 {
				v, m := protowire.ConsumeVarint(raw)
				if m < 0 {
					return s, wireError("shape dim", protowire.ParseError(m))
				}
				s.Dims = append(s.Dims, protowire.DecodeZigZag(v))
				raw = raw[m:]
			}
		case num == fieldShapeDim && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			s.Dims = append(s.Dims, protowire.DecodeZigZag(v))
		case num == fieldShapeUnknownRank && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			s.UnknownRank = v != 0
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return s, wireError("shape", protowire.ParseError(n))
		}
		b = b[n:]
	}
	return s, nil
}

func wireError(what string, err error) error {
	return fmt.Errorf("graph: decode %s: %w", what, err)
}
