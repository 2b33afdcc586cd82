package gateway

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kapu/gridblink/internal/session"
)

// Registry tracks live server-side sessions by id so stats and teardown can
// reach them. Sessions are per-connection; the registry never outlives them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Machine
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*session.Machine)}
}

// Add registers a machine and returns its session id.
func (r *Registry) Add(m *session.Machine) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = m
	r.mu.Unlock()
	return id
}

func (r *Registry) Get(id string) *session.Machine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove unregisters and destroys the session. Idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	m := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if m != nil {
		m.Destroy()
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
