// Package bus provides the connection change-event feed.
//
// The registry publishes an event whenever a connection is created or
// deleted; the rule toggler subscribes and re-evaluates the scheduled-job
// state. Delivery is at-least-once and ordered per connection ID (a create
// always precedes the matching delete), but events for different
// connections may arrive out of order. Handlers must be idempotent.
package bus

import (
	"context"
)

// Handler is a function that handles change events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for change-feed implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe registers a handler for events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event records a single connection lifecycle transition.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type ("connection.created" or "connection.deleted").
	Type string `json:"type"`

	// ConnectionID is the connection this event is about.
	ConnectionID string `json:"connection_id"`

	// Timestamp is when the event was created (unix nanoseconds).
	Timestamp int64 `json:"timestamp"`
}

// Topics for connection lifecycle events.
const (
	TopicConnectionCreated = "connection.created"
	TopicConnectionDeleted = "connection.deleted"
)
