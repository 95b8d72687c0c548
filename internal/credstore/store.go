// ABOUTME: Persistent credential store interface and backend selection
// ABOUTME: Exposes get/set/remove on the single token key

package credstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/addoc-client/internal/config"
)

// TokenKey is the only key the session layer persists.
const TokenKey = "token"

// ErrEmptyToken is returned by Set when asked to persist an empty token.
var ErrEmptyToken = errors.New("empty token")

// Store is durable storage for the bearer token.
type Store interface {
	// Get returns the stored token, or "" if none is stored.
	Get(ctx context.Context) (string, error)
	// Set replaces the stored token.
	Set(ctx context.Context, token string) error
	// Remove deletes the stored token. Removing an absent token is not an error.
	Remove(ctx context.Context) error
	Close() error
}

// Open returns the backend selected by cfg. logger may be nil.
func Open(cfg config.SessionConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Store {
	case config.StoreFile:
		return NewFileStore(cfg.Path), nil
	case config.StoreSQLite:
		return NewSQLiteStore(cfg.Path, logger)
	case config.StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q", cfg.Store)
	}
}
