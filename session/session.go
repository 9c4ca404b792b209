package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/gfnkit/errors"
	"github.com/kbukum/gfnkit/graph"
	"github.com/kbukum/gfnkit/logger"
)

// Function is a portable graph unit that can be imported into a session.
type Function interface {
	GraphDef() *graph.GraphDef
	InputNames() []string
	OutputNames() []string
}

// Session is an isolated graph plus the handle used to build and run it.
type Session struct {
	id    string
	graph *graph.Graph
	link  *Registry
	prev  []*Session
	log   *logger.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithGraph binds the session to an existing graph instead of a fresh one.
func WithGraph(g *graph.Graph) Option {
	return func(s *Session) {
		if g != nil {
			s.graph = g
		}
	}
}

// WithLink makes Enter/Exit also swap reg's current session.
func WithLink(reg *Registry) Option {
	return func(s *Session) { s.link = reg }
}

// WithLogger overrides the session's logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a session bound to a fresh empty graph unless WithGraph is given.
func New(opts ...Option) *Session {
	s := &Session{
		id:    uuid.NewString(),
		graph: graph.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("session")
	}
	s.log = s.log.WithFields(logger.Fields(logger.FieldSessionID, s.id))
	s.log.Debug("session created", logger.Fields(logger.FieldNodes, s.graph.Len(), "linked", s.link != nil))
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Graph returns the graph this session builds on.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Linked returns the registry the session is linked to, or nil.
func (s *Session) Linked() *Registry { return s.link }

// Enter activates the session. For a linked session the registry's current
// session becomes s until the matching Exit. Nesting is a stack: each Exit
// undoes the most recent Enter.
func (s *Session) Enter() *Session {
	if s.link != nil {
		s.prev = append(s.prev, s.link.Set(s))
	}
	return s
}

// Exit undoes the most recent Enter.
func (s *Session) Exit() {
	if s.link == nil || len(s.prev) == 0 {
		return
	}
	last := len(s.prev) - 1
	s.link.Set(s.prev[last])
	s.prev = s.prev[:last]
}

// Scope runs fn with the session entered and always exits, including when fn
// returns an error or panics.
func (s *Session) Scope(fn func(*Session) error) error {
	s.Enter()
	defer s.Exit()
	return fn(s)
}

// Resolve looks up a graph element by name.
func (s *Session) Resolve(name string) (*graph.Node, error) {
	return s.graph.Resolve(name)
}

// Export snapshots the session's graph. With prune, only the inputs and the
// nodes reachable backward from outputs are kept, so a declared input that
// feeds no output still resolves after import. Every input and output must
// belong to this session's graph.
func (s *Session) Export(inputs, outputs []*graph.Node, prune bool) (*graph.GraphDef, error) {
	for _, in := range inputs {
		if !s.graph.Owns(in) {
			return nil, errors.NotFound("input", elementName(in))
		}
	}
	roots := make([]*graph.Node, 0, len(outputs)+len(inputs))
	roots = append(roots, outputs...)
	roots = append(roots, inputs...)
	def, err := s.graph.Snapshot(roots, prune)
	if err != nil {
		return nil, err
	}
	s.log.Debug("exported graph", logger.Fields(logger.FieldNodes, len(def.Nodes), "prune", prune))
	return def, nil
}

// Import adds fn's graph under prefix and returns the live nodes for its
// declared inputs and outputs. A blank prefix imports names verbatim.
//
// inputMap rewires a subset of fn's declared inputs, keyed by their original
// names, onto nodes already in this session. Keys outside the declared
// inputs are rejected before anything is imported.
func (s *Session) Import(fn Function, prefix string, inputMap map[string]*graph.Node) (feeds, fetches []*graph.Node, err error) {
	prefix = strings.TrimSpace(prefix)

	if len(inputMap) > 0 {
		declared := make(map[string]bool, len(fn.InputNames()))
		for _, name := range fn.InputNames() {
			declared[graph.OpName(name)] = true
		}
		for key := range inputMap {
			if !declared[graph.OpName(key)] {
				return nil, nil, errors.InvalidInput("input_map",
					fmt.Sprintf("cannot locate provided input element %q among declared inputs %v", key, fn.InputNames()))
			}
		}
	}

	if err := s.graph.Import(fn.GraphDef(), prefix, inputMap); err != nil {
		return nil, nil, err
	}

	feeds, err = s.resolveAll(prefix, fn.InputNames())
	if err != nil {
		return nil, nil, err
	}
	fetches, err = s.resolveAll(prefix, fn.OutputNames())
	if err != nil {
		return nil, nil, err
	}

	s.log.Debug("imported graph function", logger.Fields(
		logger.FieldPrefix, prefix,
		logger.FieldNodes, s.graph.Len(),
		"rewired", len(inputMap),
	))
	return feeds, fetches, nil
}

// Run evaluates fetches with feeds bound to placeholders, all by name.
func (s *Session) Run(feeds map[string][]float64, fetches ...string) ([][]float64, error) {
	bound := make(map[*graph.Node][]float64, len(feeds))
	for name, v := range feeds {
		n, err := s.graph.Resolve(name)
		if err != nil {
			return nil, err
		}
		bound[n] = v
	}
	targets := make([]*graph.Node, len(fetches))
	for i, name := range fetches {
		n, err := s.graph.Resolve(name)
		if err != nil {
			return nil, err
		}
		targets[i] = n
	}
	return s.graph.Evaluate(bound, targets)
}

func (s *Session) resolveAll(prefix string, names []string) ([]*graph.Node, error) {
	nodes := make([]*graph.Node, len(names))
	for i, name := range names {
		n, err := s.graph.Resolve(graph.Scoped(prefix, graph.OpName(name)))
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func elementName(n *graph.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.Name()
}
