// Package storage provides the persistence backends for connections and API keys.
//
// Two backends are available: a pure-Go SQLite store for single-instance
// deployments and a redis store for deployments where several API instances
// share state. Both implement the same narrow interfaces; everything above
// this package is backend-agnostic.
package storage

import (
	"context"
	"errors"
)

// ErrUnknownBackend is returned by the factory for an unrecognized store type.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ConnectionStore is the authoritative record of live connections.
//
// All mutations are single-row and idempotent: concurrent writers (connect,
// disconnect, and the pruning done by dispatch sweeps) coordinate through
// idempotency rather than locking.
type ConnectionStore interface {
	// Insert records a connection and the API key that authorized it.
	// Inserting an already-present ID with the same key is a no-op.
	// The connection is visible to subsequent lookups once Insert returns.
	Insert(ctx context.Context, connectionID, associatedKey string) error

	// Delete removes a connection. Deleting an absent ID is not an error.
	Delete(ctx context.Context, connectionID string) error

	// ListByKey returns an unordered snapshot of the connection IDs
	// associated with the given key. The snapshot may be stale by the
	// time the caller acts on it.
	ListByKey(ctx context.Context, key string) ([]string, error)

	// ListAll returns every live connection ID. Used by maintenance sweeps.
	ListAll(ctx context.Context) ([]string, error)

	// Empty reports whether no connections exist. This is a lightweight
	// existence probe, not a full listing.
	Empty(ctx context.Context) (bool, error)
}

// KeyStore holds issued API keys. Existence equals validity: there is no
// separate expiry or enabled flag.
type KeyStore interface {
	// PutKey persists a newly issued key.
	PutKey(ctx context.Context, key string) error

	// HasKey reports whether the given token is a currently valid key.
	// A miss is a normal false result; only backend faults return an error.
	HasKey(ctx context.Context, key string) (bool, error)
}

// Store combines both stores with lifecycle management.
type Store interface {
	ConnectionStore
	KeyStore

	// Close releases backend resources.
	Close() error
}
