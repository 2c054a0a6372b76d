// Package session holds the in-process authentication state for one
// tracking session. Nothing touches disk: the access token lives in memory
// only and is discarded on logout.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Interface defines the contract for session state access.
//
// Implementations must be safe for concurrent use - the auth flow writes
// the token while the polling loop reads it.
type Interface interface {
	// SetToken stores the access token for the session.
	SetToken(token string)
	// Token returns the stored token and whether one is present.
	Token() (string, bool)
	// Clear drops the token (logout).
	Clear()
	// ID returns the session identifier used for log correlation.
	ID() string
}

// MemoryStore is the in-memory Interface implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	id    string
	token string
}

// Ensure MemoryStore implements Interface at compile time.
var _ Interface = (*MemoryStore)(nil)

// NewMemoryStore creates a store with a fresh session id.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{id: uuid.New().String()}
}

// SetToken stores the access token.
func (s *MemoryStore) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token returns the stored token, if any.
func (s *MemoryStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Clear drops the token.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// ID returns the session identifier.
func (s *MemoryStore) ID() string {
	return s.id
}
