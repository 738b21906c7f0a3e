package dispatch

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/compcontrol/api/internal/gateway"
)

// Result aggregates per-target outcomes of one fan-out.
// Callers need the full breakdown, not a single success flag: "nobody was
// listening" (Targets == 0) is a different situation from "delivery
// partially failed" (Failed > 0).
type Result struct {
	// Targets is the number of connections the fan-out attempted.
	Targets int `json:"targets"`

	// Delivered counts successful pushes.
	Delivered int `json:"delivered"`

	// Pruned counts targets the gateway reported gone; their registry
	// records were deleted.
	Pruned int `json:"pruned"`

	// Failed counts transient delivery faults; those targets stay
	// registered and get retried on the next sweep or dispatch.
	Failed int `json:"failed"`
}

// Registry is the view of the connection registry the dispatchers need.
type Registry interface {
	ListByKey(ctx context.Context, key string) ([]string, error)
	ListAll(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, connectionID string) error
}

// fanOut pushes payload to every connection in ids with bounded parallelism,
// classifying each target independently:
//
//	delivered - push succeeded
//	pruned    - gateway reported the peer gone; registry record deleted
//	failed    - transient fault; record retained, no retry this invocation
//
// The per-attempt timeout lives inside the pusher, so one hung target
// cannot stall the others beyond the worker it occupies.
func fanOut(ctx context.Context, pusher gateway.Pusher, reg Registry, ids []string, payload []byte, concurrency int) Result {
	result := Result{Targets: len(ids)}
	if len(ids) == 0 {
		return result
	}

	var mu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(concurrency)

	for _, id := range ids {
		connectionID := id
		g.Go(func() error {
			err := pusher.Push(ctx, connectionID, payload)

			switch {
			case err == nil:
				mu.Lock()
				result.Delivered++
				mu.Unlock()

			case gateway.IsGone(err):
				// The peer disconnected without the disconnect hook
				// firing. Prune the stale record; this is not a
				// delivery failure from the caller's perspective.
				if delErr := reg.Delete(ctx, connectionID); delErr != nil {
					log.Printf("dispatch: failed to prune gone connection %s: %v", connectionID, delErr)
				}
				mu.Lock()
				result.Pruned++
				mu.Unlock()

			default:
				log.Printf("dispatch: delivery to %s failed: %v", connectionID, err)
				mu.Lock()
				result.Failed++
				mu.Unlock()
			}

			// Never propagate: one target's fault must not abort the
			// fan-out for the remaining targets.
			return nil
		})
	}

	g.Wait()
	return result
}
