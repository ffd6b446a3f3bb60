package oauth

import (
	"context"
	"sync"
)

// MemoryTokenStore is an in-memory TokenStore, suitable for tests and
// single-process use.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*Token)}
}

// Store stores a token under a key.
func (s *MemoryTokenStore) Store(ctx context.Context, key string, token *Token) error {
	copied := *token
	s.mu.Lock()
	s.tokens[key] = &copied
	s.mu.Unlock()
	return nil
}

// Retrieve gets a token by key.
func (s *MemoryTokenStore) Retrieve(ctx context.Context, key string) (*Token, error) {
	s.mu.RLock()
	token, ok := s.tokens[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTokenNotFound
	}
	copied := *token
	return &copied, nil
}

// Delete removes a token by key.
func (s *MemoryTokenStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.tokens, key)
	s.mu.Unlock()
	return nil
}
