// Package stream implements the websocket stream-multiplexing state machine:
// session lifecycle, per-route subscriptions, send, and
// broadcast-with-filter. Sessions are tracked in a sync.Map registry,
// permitting stable snapshot iteration under concurrent insert/remove.
package stream

import (
	"sync"
	"sync/atomic"
)

// Session is one open websocket connection, tracked for the life of the
// connection. ClientID is assigned once and never reused.
type Session struct {
	ClientID int64

	mu               sync.Mutex // guards subscribedRoutes: single-writer per session
	subscribedRoutes map[string]struct{}

	sendMu sync.Mutex // serializes outbound writes on this session
	sender Sender

	// registryRemoved is set once the session's set of subscribed routes
	// becomes empty (or its receive loop exits) so the keepalive ping loop
	// stops pinging a connection that is being torn down.
	registryRemoved atomic.Bool
}

// Sender abstracts the underlying websocket connection's write side so the
// registry/multiplexer do not depend on a concrete websocket library type.
type Sender interface {
	// WriteText writes one text frame. Implementations must be safe to
	// call only while the session's sendMu is held (Session.writeLocked
	// enforces this; Sender implementations do not need their own locking for the
	// write itself, only for anything else they expose).
	WriteText(data []byte) error
	// Close closes the underlying connection.
	Close() error
}

func newSession(id int64, sender Sender) *Session {
	return &Session{
		ClientID:         id,
		subscribedRoutes: make(map[string]struct{}),
		sender:           sender,
	}
}

// Routes returns a snapshot slice of the session's currently subscribed
// routes.
func (s *Session) Routes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	routes := make([]string, 0, len(s.subscribedRoutes))
	for r := range s.subscribedRoutes {
		routes = append(routes, r)
	}
	return routes
}

func (s *Session) hasRoute(route string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribedRoutes[route]
	return ok
}

func (s *Session) addRoute(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribedRoutes[route] = struct{}{}
}

// removeRoute removes route and reports whether the subscription set is
// now empty.
func (s *Session) removeRoute(route string) (empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribedRoutes, route)
	return len(s.subscribedRoutes) == 0
}

func (s *Session) writeLocked(data []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.sender.WriteText(data)
}

// Registry tracks active sessions. It is safe for concurrent insert,
// remove, and snapshot-iteration.
type Registry struct {
	nextID   atomic.Int64
	sessions sync.Map // int64 ClientID -> *Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewSession assigns a fresh ClientID, inserts a new Session into the
// registry, and returns it. ClientIDs are never reused within the
// process's lifetime.
func (r *Registry) NewSession(sender Sender) *Session {
	id := r.nextID.Add(1)
	s := newSession(id, sender)
	r.sessions.Store(id, s)
	return s
}

// Remove deletes a session from the registry (called once its receive loop
// exits, after cleanup has synthesized ClientDisconnected events for every
// route still in its subscription set).
func (r *Registry) Remove(s *Session) {
	r.sessions.Delete(s.ClientID)
}

// Snapshot returns every session live at some point during the call.
// Broadcast visits a snapshot of the registry; concurrent registrations or
// removals are safe but not observed atomically.
func (r *Registry) Snapshot() []*Session {
	var out []*Session
	r.sessions.Range(func(_, v any) bool {
		out = append(out, v.(*Session))
		return true
	})
	return out
}

// Count returns the number of sessions currently registered.
func (r *Registry) Count() int {
	n := 0
	r.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
