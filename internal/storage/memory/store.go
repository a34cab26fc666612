package memory

import (
	"context"
	"sync"

	"github.com/mulligan-golf/mulligan-go/internal/storage"
)

// Store keeps the token in memory. It counts operations so tests can
// assert persistence side effects.
type Store struct {
	mu     sync.RWMutex
	token  string
	saves  int
	clears int
	subs   []func()
}

// New creates an empty store, optionally seeded with a token.
func New(token string) *Store {
	return &Store{token: token}
}

// Load implements storage.TokenStore.
func (s *Store) Load(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", storage.ErrTokenNotFound
	}
	return s.token, nil
}

// Save implements storage.TokenStore.
func (s *Store) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.saves++
	s.mu.Unlock()
	return nil
}

// Clear implements storage.TokenStore.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.clears++
	s.mu.Unlock()
	return nil
}

// Close implements storage.TokenStore.
func (s *Store) Close() error {
	return nil
}

// Watch implements storage.Watchable. Subscribers are notified by
// SetExternal.
func (s *Store) Watch(fn func()) (func() error, error) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1
	s.mu.Unlock()

	return func() error {
		s.mu.Lock()
		s.subs[idx] = nil
		s.mu.Unlock()
		return nil
	}, nil
}

// SetExternal simulates another process changing the stored token.
func (s *Store) SetExternal(token string) {
	s.mu.Lock()
	s.token = token
	subs := append([]func(){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn()
		}
	}
}

// Token returns the current token without the not-found error.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Saves returns how many times Save was called.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Clears returns how many times Clear was called.
func (s *Store) Clears() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clears
}
