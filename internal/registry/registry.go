// Package registry tracks live connections and announces lifecycle changes.
//
// The registry is the only mutable shared state in the system. Every writer
// (the connect and disconnect hooks, and the pruning done by command dispatch
// and keepalive sweeps) performs single-record idempotent operations, so
// concurrent writers need no coordination beyond the store itself.
package registry

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/compcontrol/api/internal/bus"
	"github.com/compcontrol/api/internal/storage"
)

// Registry wraps a ConnectionStore and publishes a change event after each
// successful mutation. Reads pass straight through to the store.
type Registry struct {
	store storage.ConnectionStore
	feed  bus.Bus

	// now is a test seam for time injection.
	now func() time.Time
}

// New creates a registry over the given store, announcing changes on feed.
func New(store storage.ConnectionStore, feed bus.Bus) *Registry {
	return &Registry{
		store: store,
		feed:  feed,
		now:   time.Now,
	}
}

// Insert records a connection, then announces connection.created.
// Inserting an already-present ID is a no-op at the store level but still
// publishes an event; subscribers are idempotent by contract, so the
// duplicate announcement is harmless (at-least-once delivery).
func (r *Registry) Insert(ctx context.Context, connectionID, associatedKey string) error {
	if err := r.store.Insert(ctx, connectionID, associatedKey); err != nil {
		return err
	}

	r.publish(ctx, bus.TopicConnectionCreated, connectionID)
	return nil
}

// Delete removes a connection, then announces connection.deleted.
// Deleting an absent ID is not an error.
func (r *Registry) Delete(ctx context.Context, connectionID string) error {
	if err := r.store.Delete(ctx, connectionID); err != nil {
		return err
	}

	r.publish(ctx, bus.TopicConnectionDeleted, connectionID)
	return nil
}

// ListByKey returns an unordered snapshot of the connections for a key.
func (r *Registry) ListByKey(ctx context.Context, key string) ([]string, error) {
	return r.store.ListByKey(ctx, key)
}

// ListAll returns every live connection ID.
func (r *Registry) ListAll(ctx context.Context) ([]string, error) {
	return r.store.ListAll(ctx)
}

// Empty reports whether no connections exist.
func (r *Registry) Empty(ctx context.Context) (bool, error) {
	return r.store.Empty(ctx)
}

// publish sends a change event. A failed publish is logged, not returned:
// the store mutation has already committed, and the toggler recovers state
// on the next event it does receive.
func (r *Registry) publish(ctx context.Context, topic, connectionID string) {
	event := bus.Event{
		ID:           uuid.NewString(),
		Type:         topic,
		ConnectionID: connectionID,
		Timestamp:    r.now().UnixNano(),
	}

	if err := r.feed.Publish(ctx, topic, event); err != nil {
		log.Printf("registry: failed to publish %s for %s: %v", topic, connectionID, err)
	}
}
