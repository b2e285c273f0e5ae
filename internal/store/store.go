// Package store persists profile documents and hands out the session
// identifiers that point at them.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/brizzai/mobsq/internal/auth/models"
	"github.com/brizzai/mobsq/internal/config"
)

// ErrNotFound is returned by Get when no profile has the identifier.
var ErrNotFound = errors.New("profile not found")

// Store is the profile collection. Insert returns only after the write is
// durable, and an identifier it returns is immediately visible to Get.
type Store interface {
	Insert(ctx context.Context, profile models.Profile) (string, error)
	Get(ctx context.Context, id string) (models.Profile, error)
	Close() error
}

// Open constructs the store selected by cfg.Driver.
func Open(cfg *config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "pgx":
		return OpenSQL(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}
