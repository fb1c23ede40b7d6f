// Package dao defines the generic storage contract used for checkpoint
// persistence. Implementations live in sub-packages; the engine itself never
// touches storage directly.
package dao

import (
	"context"
)

// Service is a keyed store for entities of type T.
type Service[K comparable, T any] interface {
	// Save persists t under id, replacing any previous value. Writes are
	// atomic: a reader never observes a partially written entity.
	Save(ctx context.Context, id K, t *T) error

	// Load retrieves the entity stored under id; ErrNotFound when absent.
	Load(ctx context.Context, id K) (*T, error)

	// Delete removes the entity stored under id; ErrNotFound when absent.
	Delete(ctx context.Context, id K) error

	// List returns all known keys.
	List(ctx context.Context) ([]K, error)
}
