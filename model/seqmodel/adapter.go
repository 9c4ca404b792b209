package seqmodel

import (
	"context"

	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/logger"
	"github.com/kbukum/gfnkit/model"
	"github.com/kbukum/gfnkit/session"
)

// Adapter builds sequential models into sessions. With a registry it builds
// into the registry's current session, the way layer libraries target their
// ambient session; callers entering a linked session make that the session
// passed to Load.
type Adapter struct {
	reg *session.Registry
	log *logger.Logger
}

// NewAdapter creates an adapter. reg may be nil.
func NewAdapter(reg *session.Registry) *Adapter {
	return &Adapter{reg: reg, log: logger.Get("seqmodel")}
}

// Registry returns the registry the adapter resolves its session from.
func (a *Adapter) Registry() *session.Registry { return a.reg }

// Load reads the model at path and builds it.
func (a *Adapter) Load(_ context.Context, s *session.Session, path string) ([]*graph.Node, []*graph.Node, error) {
	m, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	target := s
	if a.reg != nil {
		if cur := a.reg.Current(); cur != nil {
			target = cur
		}
	}

	x, out, err := m.Build(target.Graph())
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("sequential model built", logger.Fields(
		"model", m.Name,
		"layers", len(m.Layers),
		logger.FieldSessionID, target.ID(),
	))
	return []*graph.Node{x}, []*graph.Node{out}, nil
}

var (
	_ model.Adapter = (*Adapter)(nil)
	_ model.Linked  = (*Adapter)(nil)
	_ model.Model   = (*Model)(nil)
)
