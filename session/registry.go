package session

import "sync"

// Registry holds the ambient "current session" shared with a linked
// collaborator. The zero value has no current session.
type Registry struct {
	mu      sync.Mutex
	current *Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Current returns the session currently registered, or nil.
func (r *Registry) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Set registers s as current and returns the previously registered session.
func (r *Registry) Set(s *Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.current
	r.current = s
	return prev
}
