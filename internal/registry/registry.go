// Package registry tracks the identity bound to each live connection.
package registry

import (
	"sync"
	"time"

	"github.com/chat-relay/backend/internal/model"
)

// Registry maps active connection ids to identities. It is the single
// source of truth for who is online; every other component looks identities
// up here and never outlives the registry's copy.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]model.Identity
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]model.Identity),
	}
}

// Register binds an identity to a connection id. It returns
// model.ErrDuplicateConnection if the id is already present.
func (r *Registry) Register(connID, username, avatar string) (model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; exists {
		return model.Identity{}, model.ErrDuplicateConnection
	}

	ident := model.Identity{
		ID:       connID,
		Username: username,
		Avatar:   avatar,
		JoinedAt: time.Now(),
	}
	r.conns[connID] = ident
	return ident, nil
}

// Lookup returns the identity for a connection id.
func (r *Registry) Lookup(connID string) (model.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ident, ok := r.conns[connID]
	return ident, ok
}

// Remove deletes the identity for a connection id and returns it so that
// dependent components can run their cleanup against the removed entry.
func (r *Registry) Remove(connID string) (model.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.conns[connID]
	if !ok {
		return model.Identity{}, false
	}
	delete(r.conns, connID)
	return ident, true
}

// ListAll returns a snapshot of every registered identity.
func (r *Registry) ListAll() []model.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identities := make([]model.Identity, 0, len(r.conns))
	for _, ident := range r.conns {
		identities = append(identities, ident)
	}
	return identities
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
