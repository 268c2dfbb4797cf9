// Package session binds bearer tokens to identity IDs. The token issued at
// registration is how every later call proves which identity it acts as.
package session

import (
	"sync"

	"prismpapers/internal/util"
)

// Store persists session tokens.
type Store interface {
	NewSession(identityID string) (string, error)
	IdentityIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// MemoryStore keeps sessions in-process, for tests and local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	sess map[string]string // token -> identity ID
}

// NewMemoryStore initializes an empty memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sess: make(map[string]string)}
}

// NewSession creates a session token for an identity.
func (m *MemoryStore) NewSession(identityID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := util.NewID()
	m.sess[token] = identityID
	return token, nil
}

// IdentityIDByToken resolves a token to its identity.
func (m *MemoryStore) IdentityIDByToken(token string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.sess[token]
	return id, ok, nil
}

// DeleteSession removes a token mapping.
func (m *MemoryStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
