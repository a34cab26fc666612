package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/pkg/crypto/adaptive"
)

// sealPurpose binds derived keys to this use.
const sealPurpose = "mulligan token store v1"

// Sealed encrypts the token before it reaches the inner store.
type Sealed struct {
	inner  TokenStore
	sealer *adaptive.Sealer
}

// NewSealed wraps inner with passphrase encryption.
func NewSealed(inner TokenStore, passphrase string) (*Sealed, error) {
	sealer, err := adaptive.NewSealer(passphrase, sealPurpose)
	if err != nil {
		return nil, err
	}
	return &Sealed{inner: inner, sealer: sealer}, nil
}

// Load implements TokenStore.
//
// A value written before encryption was enabled is returned as-is and
// sealed on the next Save.
func (s *Sealed) Load(ctx context.Context) (string, error) {
	stored, err := s.inner.Load(ctx)
	if err != nil {
		return "", err
	}

	raw, err := base64.RawStdEncoding.DecodeString(stored)
	if err != nil || !adaptive.IsSealed(raw) {
		return stored, nil
	}

	token, err := s.sealer.Open(raw)
	if err != nil {
		if errors.Is(err, adaptive.ErrDecryptionFailed) {
			return "", domain.ErrTokenSealed.WithCause(err)
		}
		return "", fmt.Errorf("open sealed token: %w", err)
	}
	return string(token), nil
}

// Save implements TokenStore.
func (s *Sealed) Save(ctx context.Context, token string) error {
	env, err := s.sealer.Seal([]byte(token))
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return s.inner.Save(ctx, base64.RawStdEncoding.EncodeToString(env))
}

// Clear implements TokenStore.
func (s *Sealed) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

// Close implements TokenStore.
func (s *Sealed) Close() error {
	return s.inner.Close()
}

// Watch forwards to the inner store when it is Watchable.
func (s *Sealed) Watch(fn func()) (func() error, error) {
	w, ok := s.inner.(Watchable)
	if !ok {
		return func() error { return nil }, nil
	}
	return w.Watch(fn)
}
