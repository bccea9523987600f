package analyzer

import (
	"sync"

	"github.com/schemascope/schemascope/internal/schema"
)

// Registry tracks live scan sessions in memory. It is consulted before the
// result store so progress queries never touch the blob backend, and it is
// the only place the operations layer can reach an in-flight session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*schema.ScanSession
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*schema.ScanSession)}
}

// Put registers a session under its scan id.
func (r *Registry) Put(s *schema.ScanSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ScanID] = s
}

// Get returns the session for a scan id, if it is still registered.
func (r *Registry) Get(scanID string) (*schema.ScanSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[scanID]
	return s, ok
}

// Remove drops the session once its result has been persisted.
func (r *Registry) Remove(scanID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, scanID)
}

// Len reports how many sessions are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
