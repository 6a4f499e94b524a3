package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Storage persists opaque string values by key. Implementations must be
// safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Key returns the storage key for the token record of one deployment
// environment, so environments sharing a backend do not collide.
func Key(env string) string {
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("auth-tokens-%s", env)
}
