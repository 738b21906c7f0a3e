package dispatch

import (
	"context"
	"fmt"
	"log"

	"github.com/compcontrol/api/internal/bus"
)

// EmptyProber is the registry view the toggler needs: a cheap
// "are there any connections at all" probe.
type EmptyProber interface {
	Empty(ctx context.Context) (bool, error)
}

// Toggler reacts to connection change events by enabling the periodic
// triggers while any connection exists and disabling them when the registry
// empties out.
//
// The toggler is stateless between events: rather than counting creates and
// deletes (which arrive at-least-once and may interleave across
// connections), it re-probes the registry on every event and reconciles the
// triggers to the observed state. Redundant events are harmless because
// trigger enable/disable are idempotent.
type Toggler struct {
	probe    EmptyProber
	triggers []*Trigger
}

// NewToggler creates a toggler managing the given triggers.
func NewToggler(probe EmptyProber, triggers ...*Trigger) *Toggler {
	return &Toggler{
		probe:    probe,
		triggers: triggers,
	}
}

// OnEvent is the bus.Handler for connection lifecycle events.
// On a probe fault the trigger state is left untouched; the next event
// retriggers re-evaluation, so a briefly stale state is bounded.
func (t *Toggler) OnEvent(ctx context.Context, event bus.Event) error {
	empty, err := t.probe.Empty(ctx)
	if err != nil {
		return fmt.Errorf("probe registry after %s: %w", event.Type, err)
	}

	if empty {
		for _, trigger := range t.triggers {
			trigger.Disable()
		}
	} else {
		for _, trigger := range t.triggers {
			trigger.Enable()
		}
	}

	return nil
}

// Register subscribes the toggler to the connection change feed and
// reconciles once against current state, so a service restarted while
// agents are connected starts its triggers without waiting for an event.
func (t *Toggler) Register(ctx context.Context, feed bus.Bus) error {
	for _, topic := range []string{bus.TopicConnectionCreated, bus.TopicConnectionDeleted} {
		if err := feed.Subscribe(ctx, topic, t.OnEvent); err != nil {
			return fmt.Errorf("subscribe to %s: %w", topic, err)
		}
	}

	// Initial reconcile. A fault here is non-fatal: the first change
	// event will re-evaluate.
	if err := t.OnEvent(ctx, bus.Event{Type: "startup"}); err != nil {
		log.Printf("toggler: initial reconcile failed: %v", err)
	}

	return nil
}
