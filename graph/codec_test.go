package graph

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func sampleDef() *GraphDef {
	return &GraphDef{
		Version: CurrentVersion,
		Nodes: []NodeDef{
			{Name: "x", Op: OpPlaceholder, DType: Float32, Shape: MakeShape(UnknownDim, 3)},
			{Name: "u", Op: OpPlaceholder, DType: Int64, Shape: UnknownShape()},
			{Name: "c", Op: OpConst, DType: Float32, Shape: MakeShape(3), Value: []float64{1.5, -2, 0}},
			{Name: "blk/y", Op: OpAdd, Inputs: []string{"x", "c:0"}, DType: Float32, Shape: MakeShape(UnknownDim, 3)},
		},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	d := sampleDef()
	b, err := d.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Version != d.Version || len(got.Nodes) != len(d.Nodes) {
		t.Fatalf("unexpected decoded graph %+v", got)
	}
	for i := range d.Nodes {
		w, g := d.Nodes[i], got.Nodes[i]
		if w.Name != g.Name || w.Op != g.Op || w.DType != g.DType || !w.Shape.Equal(g.Shape) {
			t.Errorf("node %d: want %+v, got %+v", i, w, g)
		}
		if len(w.Inputs) != len(g.Inputs) || len(w.Value) != len(g.Value) {
			t.Errorf("node %d: inputs/values differ: %+v vs %+v", i, w, g)
		}
	}
	if got.Nodes[2].Value[1] != -2 {
		t.Errorf("expected const value -2, got %v", got.Nodes[2].Value)
	}
	if got.Nodes[0].Shape.Dims[0] != UnknownDim {
		t.Errorf("unknown dim lost: %v", got.Nodes[0].Shape)
	}
	if !got.Nodes[1].Shape.UnknownRank {
		t.Error("unknown rank lost")
	}

	again, err := got.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, again) {
		t.Error("encoding is not deterministic across a round trip")
	}
}

func TestCodec_SkipsUnknownFields(t *testing.T) {
	b, _ := sampleDef().Marshal()
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Nodes) != 4 {
		t.Errorf("expected 4 nodes, got %d", len(got.Nodes))
	}
}

func TestCodec_Truncated(t *testing.T) {
	b, _ := sampleDef().Marshal()
	if _, err := Unmarshal(b[:len(b)-3]); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestCodec_Empty(t *testing.T) {
	d := &GraphDef{}
	b, err := d.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 0 {
		t.Errorf("expected empty encoding, got %d bytes", len(b))
	}
	got, err := Unmarshal(b)
	if err != nil || len(got.Nodes) != 0 {
		t.Fatalf("unexpected decode of empty graph: %+v, %v", got, err)
	}
}
