package memory

import (
	"context"
	"sync/atomic"

	"saralpe/internal/domain/token"
)

// TokenStore keeps the current token in process memory. It does not survive
// a restart and is meant for tests and single-instance local runs.
type TokenStore struct {
	slot atomic.Pointer[token.AuthToken]
}

func NewTokenStore() *TokenStore { return &TokenStore{} }

// Get returns a copy so callers cannot alter the stored token.
func (s *TokenStore) Get(ctx context.Context) (*token.AuthToken, error) {
	t := s.slot.Load()
	if t == nil {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *TokenStore) Put(ctx context.Context, t *token.AuthToken) error {
	cp := *t
	s.slot.Store(&cp)
	return nil
}
