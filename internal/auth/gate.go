// Package auth provides token authorization and API key issuance.
package auth

import (
	"context"
	"log"

	apiErrors "github.com/compcontrol/api/internal/errors"
	"github.com/compcontrol/api/internal/storage"
)

// Gate is the single authorization decision point. Both the connect path
// and the command path evaluate presented tokens through it, so the policy
// stays transport-free.
type Gate struct {
	keys storage.KeyStore
}

// NewGate creates a gate over the given key store.
func NewGate(keys storage.KeyStore) *Gate {
	return &Gate{keys: keys}
}

// Authorize evaluates a presented token and returns the allow/deny decision.
//
//   - An empty token is denied without touching the key store.
//   - A present token is allowed iff the key store reports it valid.
//   - A key store fault denies (fail closed) AND returns the error, so the
//     caller can surface an internal-error response while the decision
//     itself never allows on uncertain backend state.
func (g *Gate) Authorize(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	valid, err := g.keys.HasKey(ctx, token)
	if err != nil {
		log.Printf("auth: key store fault, denying fail-closed: %v", err)
		return false, apiErrors.AuthBackendFault(err)
	}

	if !valid {
		log.Printf("auth: token validation failed (no matching key)")
		return false, nil
	}

	return true, nil
}
