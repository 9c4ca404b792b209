// Package session provides isolated execution contexts for building and
// exchanging computation graphs.
//
// A Session owns exactly one graph for its lifetime. Graph construction
// always targets a session explicitly; there is no hidden default graph.
// The only ambient state is an optional linked Registry, used by
// collaborators (such as model adapters) that look up "the current
// session" instead of receiving one. Entering a linked session makes it the
// registry's current session and exiting restores the previous one:
//
//	s := session.New(session.WithLink(reg))
//	err := s.Scope(func(s *session.Session) error {
//	    // reg.Current() == s here
//	    return nil
//	})
//	// reg.Current() is back to what it was, even if fn failed or panicked
//
// Sessions are not safe for concurrent use; allocate one per flow.
package session
