// Package store defines the persistence boundary for enrolled identities.
// Backends live in subpackages; the gallery only sees this interface.
package store

import "context"

// Record is one persisted identity row.
type Record struct {
	ID        int64
	Name      string
	Embedding []float32
}

// Store persists enrolled identities. Implementations must be safe for
// concurrent use; the gallery serializes its own writes but reads may
// overlap with CLI tooling.
type Store interface {
	// Insert persists an identity under an explicit id. Ids are assigned
	// by the gallery, never by the backend.
	Insert(ctx context.Context, id int64, name string, embedding []float32) error

	// DeleteByName removes every identity with exactly the given name and
	// returns the number of rows removed. 0 is not an error.
	DeleteByName(ctx context.Context, name string) (int, error)

	// LoadAll returns every persisted identity.
	LoadAll(ctx context.Context) ([]Record, error)

	// Reset drops all persisted identities.
	Reset(ctx context.Context) error

	Close() error
}
