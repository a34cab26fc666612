package storage

import (
	"context"

	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
)

// TokenKey is the well-known key the token is stored under.
const TokenKey = "authToken"

// ErrTokenNotFound is returned by Load when no token is persisted.
var ErrTokenNotFound = domain.ErrTokenNotFound

// TokenStore persists one opaque credential token.
type TokenStore interface {
	// Load returns the persisted token or ErrTokenNotFound.
	Load(ctx context.Context) (string, error)

	// Save persists the token, replacing any previous one.
	Save(ctx context.Context, token string) error

	// Clear removes the token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// Watchable is implemented by stores that can report external changes.
type Watchable interface {
	// Watch calls fn whenever the persisted token may have changed outside
	// this process. The returned function stops watching.
	Watch(fn func()) (stop func() error, err error)
}
