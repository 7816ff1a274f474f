package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"epictree/internal/events"
)

// DefaultID is used when a request names no session.
const DefaultID = "default"

// Factory builds a session for an id and epic.
type Factory func(id, epicKey string) *Session

type entry struct {
	session *Session
	cancel  context.CancelFunc
}

// Registry maps session ids to sessions. When a bus is configured each
// session watches it for change events until removed.
type Registry struct {
	factory Factory
	bus     *events.Bus
	logger  *slog.Logger

	mu       sync.Mutex
	closed   bool
	sessions map[string]entry
	wg       sync.WaitGroup
}

// NewRegistry creates a Registry. bus may be nil.
func NewRegistry(factory Factory, bus *events.Bus, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory:  factory,
		bus:      bus,
		logger:   logger,
		sessions: map[string]entry{},
	}
}

// Get returns the session for id showing epicKey, creating it when absent.
// A session showing a different epic is replaced.
func (r *Registry) Get(id, epicKey string) (*Session, error) {
	id = normalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if e, ok := r.sessions[id]; ok {
		if e.session.EpicKey() == epicKey && !e.session.Closed() {
			return e.session, nil
		}
		r.dropLocked(id, e)
	}

	s := r.factory(id, epicKey)
	ctx, cancel := context.WithCancel(context.Background())
	r.sessions[id] = entry{session: s, cancel: cancel}
	if r.bus != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			s.Watch(ctx, r.bus)
		}()
	}
	r.logger.Debug("session created", "session", id, "epic", epicKey)
	return s, nil
}

// Lookup returns an existing session.
func (r *Registry) Lookup(id string) (*Session, bool) {
	id = normalizeID(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id string) {
	id = normalizeID(id)
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		r.dropLocked(id, e)
	}
}

// IDs lists the live session ids.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]*Session, len(r.sessions))
	for id, e := range r.sessions {
		m[id] = e.session
	}
	return sortedKeys(m)
}

// Close closes every session and waits for their watchers to stop.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	for id, e := range r.sessions {
		r.dropLocked(id, e)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Registry) dropLocked(id string, e entry) {
	e.session.Close()
	e.cancel()
	delete(r.sessions, id)
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultID
	}
	return id
}
