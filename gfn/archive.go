package gfn

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/store"
	"github.com/kbukum/gfnkit/version"
)

// Ext is the file suffix of graph function archives.
const Ext = ".gfn"

// Archive field names.
const (
	fieldGraphDef = "graph_def_bytes"
	fieldInputs   = "inputs"
	fieldOutputs  = "outputs"
	fieldProducer = "producer"
)

// container is the persisted form of a GraphFunction.
type container struct {
	GraphDefBytes []byte   `msgpack:"graph_def_bytes"`
	Inputs        []string `msgpack:"inputs"`
	Outputs       []string `msgpack:"outputs"`
	Producer      string   `msgpack:"producer,omitempty"`
}

// ArchivePath appends Ext to p unless it already ends with it.
func ArchivePath(p string) string {
	if strings.HasSuffix(p, Ext) {
		return p
	}
	return p + Ext
}

// Encode serializes f into the archive container.
func (f *GraphFunction) Encode() ([]byte, error) {
	def, err := f.def.Marshal()
	if err != nil {
		return nil, errors.Internal(err)
	}
	b, err := msgpack.Marshal(&container{
		GraphDefBytes: def,
		Inputs:        cloneNames(f.inputNames),
		Outputs:       cloneNames(f.outputNames),
		Producer:      version.Producer(),
	})
	if err != nil {
		return nil, errors.Internal(err)
	}
	return b, nil
}

// Decode rebuilds a GraphFunction from archive bytes produced by Encode.
func Decode(b []byte) (*GraphFunction, error) {
	return decode("<bytes>", b)
}

func decode(name string, b []byte) (*GraphFunction, error) {
	c, present, err := decodeContainer(b)
	if err != nil {
		return nil, errors.IO("decode", name, err)
	}

	var missing []string
	for _, field := range []string{fieldGraphDef, fieldInputs, fieldOutputs} {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MalformedArchive(name, missing)
	}

	def, err := graph.Unmarshal(c.GraphDefBytes)
	if err != nil {
		return nil, errors.IO("decode graph definition of", name, err)
	}
	return New(def, c.Inputs, c.Outputs)
}

// decodeContainer reads the top-level map field by field so that absent
// fields can be told apart from empty ones. Unknown fields are skipped.
func decodeContainer(b []byte) (*container, map[string]bool, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, nil, err
	}

	c := &container{}
	present := make(map[string]bool, 4)
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, nil, err
		}
		switch key {
		case fieldGraphDef:
			c.GraphDefBytes, err = dec.DecodeBytes()
		case fieldInputs:
			err = dec.Decode(&c.Inputs)
		case fieldOutputs:
			err = dec.Decode(&c.Outputs)
		case fieldProducer:
			c.Producer, err = dec.DecodeString()
		default:
			err = dec.Skip()
		}
		if err != nil {
			return nil, nil, err
		}
		present[key] = true
	}
	return c, present, nil
}

// Dump writes f to ArchivePath(path).
func (f *GraphFunction) Dump(path string) error {
	path = ArchivePath(path)
	b, err := f.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.IO("write", path, err)
	}
	logger.Get("gfn").Debug("graph function dumped", logger.Fields(
		logger.FieldArchive, path,
		logger.FieldNodes, len(f.def.Nodes),
	))
	return nil
}

// Load reads a GraphFunction from ArchivePath(path).
func Load(path string) (*GraphFunction, error) {
	path = ArchivePath(path)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO("read", path, err)
	}
	return decode(path, b)
}

// Save stores f in s under ArchivePath(key).
func (f *GraphFunction) Save(ctx context.Context, s store.Store, key string) error {
	key = ArchivePath(key)
	b, err := f.Encode()
	if err != nil {
		return err
	}
	if err := s.Put(ctx, key, b); err != nil {
		return err
	}
	logger.Get("gfn").Debug("graph function saved", logger.Fields(logger.FieldArchive, key))
	return nil
}

// Open reads a GraphFunction stored in s under ArchivePath(key).
func Open(ctx context.Context, s store.Store, key string) (*GraphFunction, error) {
	key = ArchivePath(key)
	b, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decode(key, b)
}
