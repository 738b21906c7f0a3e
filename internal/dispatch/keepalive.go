package dispatch

import (
	"context"
	"log"

	apiErrors "github.com/compcontrol/api/internal/errors"
	"github.com/compcontrol/api/internal/gateway"
)

// Sweeper sends heartbeat frames to every live connection so the external
// gateway doesn't recycle idle sockets. Unlike command dispatch, the sweep
// is not scoped to a key - it is a maintenance pass over all connections.
type Sweeper struct {
	registry    Registry
	pusher      gateway.Pusher
	concurrency int
}

// NewSweeper creates a keepalive sweeper.
func NewSweeper(reg Registry, pusher gateway.Pusher, concurrency int) *Sweeper {
	return &Sweeper{
		registry:    reg,
		pusher:      pusher,
		concurrency: concurrency,
	}
}

// Sweep pings all live connections, pruning those the gateway reports gone.
// Partial failure is tolerated: one target's fault never aborts the sweep
// for the remaining targets.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	ids, err := s.registry.ListAll(ctx)
	if err != nil {
		return Result{}, apiErrors.Wrap(apiErrors.CodeRegistryQueryFailed, "list all connections", err)
	}

	if len(ids) == 0 {
		return Result{}, nil
	}

	result := fanOut(ctx, s.pusher, s.registry, ids, pingFrame(), s.concurrency)

	log.Printf("keepalive: swept %d connections (%d delivered, %d pruned, %d failed)",
		result.Targets, result.Delivered, result.Pruned, result.Failed)

	return result, nil
}
