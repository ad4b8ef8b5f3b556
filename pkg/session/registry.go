package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
)

// Backend persists sessions outside the process.
type Backend interface {
	Save(id string, s Session) error
	Load(id string) (Session, bool, error)
	Delete(id string) error
}

type entry struct {
	s        Session
	lastSeen time.Time
}

// Registry maps session ids to sessions. It is the only shared mutable
// state touched while serving requests and is guarded by a single mutex.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	backend Backend
	now     func() time.Time
}

// NewRegistry returns a registry. backend may be nil.
func NewRegistry(backend Backend) *Registry {
	return &Registry{
		entries: make(map[string]entry),
		backend: backend,
		now:     time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string { return uuid.NewString() }

// Lookup returns the session stored under id, falling back to the backend.
// The backend is read without holding the registry lock.
func (r *Registry) Lookup(id string) (Session, bool) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.lastSeen = r.now()
		r.entries[id] = e
		r.mu.Unlock()
		return e.s, true
	}
	r.mu.Unlock()
	if r.backend == nil {
		return nil, false
	}
	s, ok, err := r.backend.Load(id)
	if err != nil {
		logger.Warn("session_load_failed", "id", id, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.s, true
	}
	r.entries[id] = entry{s: s, lastSeen: r.now()}
	return s, true
}

// Store records s under id and writes it through to the backend.
func (r *Registry) Store(id string, s Session) {
	r.mu.Lock()
	r.entries[id] = entry{s: s, lastSeen: r.now()}
	r.mu.Unlock()
	if r.backend != nil {
		if err := r.backend.Save(id, s); err != nil {
			logger.Warn("session_save_failed", "id", id, "error", err)
		}
	}
}

// Remove forgets id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	r.deleteBackend(id)
}

// Sweep evicts sessions idle for longer than maxIdle from memory and the
// backend, returning how many were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	cutoff := r.now().Add(-maxIdle)
	var idle []string
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()
	for _, id := range idle {
		r.deleteBackend(id)
	}
	return len(idle)
}

func (r *Registry) deleteBackend(id string) {
	if r.backend == nil {
		return
	}
	if err := r.backend.Delete(id); err != nil {
		logger.Warn("session_delete_failed", "id", id, "error", err)
	}
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
