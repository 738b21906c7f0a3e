package dispatch

import (
	"context"
	"log"

	apiErrors "github.com/compcontrol/api/internal/errors"
	"github.com/compcontrol/api/internal/gateway"
)

// Router validates commands and delivers them to every connection
// associated with the caller's key.
type Router struct {
	registry    Registry
	pusher      gateway.Pusher
	allowed     map[string]struct{}
	concurrency int
}

// NewRouter creates a command router.
// allowedCommands is the fixed allow-list; concurrency bounds the fan-out.
func NewRouter(reg Registry, pusher gateway.Pusher, allowedCommands []string, concurrency int) *Router {
	allowed := make(map[string]struct{}, len(allowedCommands))
	for _, cmd := range allowedCommands {
		allowed[cmd] = struct{}{}
	}

	return &Router{
		registry:    reg,
		pusher:      pusher,
		allowed:     allowed,
		concurrency: concurrency,
	}
}

// Allowed reports whether a command is in the allow-list.
func (r *Router) Allowed(command string) bool {
	_, ok := r.allowed[command]
	return ok
}

// Dispatch sends command to every connection registered under callerKey.
//
// An unknown command is rejected before any registry read. A key with no
// live connections yields a zero-target Result, which is a normal outcome,
// not an error. Per-target faults are absorbed into the aggregate counts;
// the only errors returned are the allow-list rejection and registry faults.
func (r *Router) Dispatch(ctx context.Context, callerKey, command string) (Result, error) {
	if !r.Allowed(command) {
		return Result{}, apiErrors.CommandNotAllowed(command)
	}

	ids, err := r.registry.ListByKey(ctx, callerKey)
	if err != nil {
		return Result{}, apiErrors.Wrap(apiErrors.CodeRegistryQueryFailed, "list connections for key", err)
	}

	if len(ids) == 0 {
		log.Printf("dispatch: no connected agents for caller, nothing to send")
		return Result{}, nil
	}

	result := fanOut(ctx, r.pusher, r.registry, ids, commandFrame(command), r.concurrency)

	log.Printf("dispatch: command %q -> %d targets (%d delivered, %d pruned, %d failed)",
		command, result.Targets, result.Delivered, result.Pruned, result.Failed)

	return result, nil
}
