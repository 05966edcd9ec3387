package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// single-node deployments; use [RedisStore] when tokens must survive
// restarts or be shared across processes.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*Token)}
}

// Insert stores a fresh terminal chain node.
func (s *MemoryStore) Insert(_ context.Context, token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = &token
	return nil
}

// Get returns a copy of the record for a token value.
func (s *MemoryStore) Get(_ context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tokens[value]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

// Revoke marks the token revoked at most once.
func (s *MemoryStore) Revoke(_ context.Context, value, ip string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tokens[value]
	if !ok || stored.Revoked() {
		return false, nil
	}
	stored.RevokedAt = at
	stored.RevokedByIP = ip
	return true, nil
}

// Rotate revokes the active tail, links it to the successor, and inserts
// the successor under one lock acquisition.
func (s *MemoryStore) Rotate(_ context.Context, value string, successor Token, ip string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tokens[value]
	if !ok {
		return ErrNotFound
	}
	if !stored.Active(at) {
		return ErrConflict
	}
	stored.RevokedAt = at
	stored.RevokedByIP = ip
	stored.ReplacedByToken = successor.Token
	s.tokens[successor.Token] = &successor
	return nil
}
