// Package model defines the boundary between graph functions and trained
// model formats: where a model comes from and how an adapter builds it into
// a session.
package model

import (
	"context"
	"strings"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/session"
)

// Model is an in-memory trained model that can materialise itself in the
// directory at path, in the format its adapter loads.
type Model interface {
	Save(path string) error
}

// Adapter builds a persisted model into s and returns its input and output
// endpoints. Inputs must be placeholder nodes.
type Adapter interface {
	Load(ctx context.Context, s *session.Session, path string) (inputs, outputs []*graph.Node, err error)
}

// Linked is implemented by adapters that track the active session through
// a registry. Loading from such an adapter links the fresh session to it.
type Linked interface {
	Registry() *session.Registry
}

// Kind tells the two Source variants apart.
type Kind int

const (
	KindPath Kind = iota
	KindInMemory
)

func (k Kind) String() string {
	if k == KindInMemory {
		return "in-memory"
	}
	return "path"
}

// Source is where a model comes from: either an in-memory model or a
// persisted one at a path. Build one with InMemory or Path.
type Source struct {
	kind  Kind
	model Model
	path  string
}

// InMemory returns a Source for a live model.
func InMemory(m Model) Source {
	return Source{kind: KindInMemory, model: m}
}

// Path returns a Source for a model persisted at p.
func Path(p string) Source {
	return Source{kind: KindPath, path: strings.TrimSpace(p)}
}

// Kind returns the source variant.
func (s Source) Kind() Kind { return s.kind }

// Model returns the in-memory model, or nil for a path source.
func (s Source) Model() Model { return s.model }

// Location returns the path of a path source.
func (s Source) Location() string { return s.path }

// Validate reports a source that carries nothing to load.
func (s Source) Validate() error {
	switch s.kind {
	case KindInMemory:
		if s.model == nil {
			return errors.InvalidInput("model", "in-memory source has no model")
		}
	default:
		if s.path == "" {
			return errors.InvalidInput("path", "model path is empty")
		}
	}
	return nil
}
