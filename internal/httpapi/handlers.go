package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/compcontrol/api/internal/dispatch"
	apiErrors "github.com/compcontrol/api/internal/errors"
)

// authHeader is the request header carrying the API key. The external
// gateway forwards the same header it received during the WebSocket
// handshake, so connect and command requests authenticate identically.
const authHeader = "auth"

// connectionIDHeader carries the gateway-assigned connection identifier
// on the connect and disconnect hooks.
const connectionIDHeader = "X-Connection-Id"

// handleConnect authorizes a new connection and records it.
// Called by the gateway after it accepts the WebSocket handshake.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apiErrors.CodeInternal, "Only POST is allowed")
		return
	}

	connectionID := r.Header.Get(connectionIDHeader)
	if connectionID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.CodeRegistryInsertFailed, "Missing connection ID header")
		return
	}

	token := r.Header.Get(authHeader)
	if token == "" {
		// Fail fast without a key store round trip.
		writeError(w, http.StatusBadRequest, apiErrors.CodeAuthMissingToken, "Missing authentication token")
		return
	}

	allowed, err := s.gate.Authorize(r.Context(), token)
	if err != nil {
		// Denied fail-closed on backend uncertainty; surface the fault.
		writeCodedError(w, http.StatusInternalServerError, err)
		return
	}
	if !allowed {
		log.Printf("httpapi: connect rejected for connection %s: invalid token", connectionID)
		writeError(w, http.StatusUnauthorized, apiErrors.CodeAuthInvalidToken, "Invalid authentication token")
		return
	}

	if err := s.registry.Insert(r.Context(), connectionID, token); err != nil {
		writeCodedError(w, http.StatusInternalServerError,
			apiErrors.Wrap(apiErrors.CodeRegistryInsertFailed, "record connection", err))
		return
	}

	log.Printf("httpapi: connection %s registered", connectionID)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "connected"})
}

// handleDisconnect removes a connection record.
// Called by the gateway when the peer closes or the connection is reaped.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apiErrors.CodeInternal, "Only POST is allowed")
		return
	}

	connectionID := r.Header.Get(connectionIDHeader)
	if connectionID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.CodeRegistryDeleteFailed, "Missing connection ID header")
		return
	}

	if err := s.registry.Delete(r.Context(), connectionID); err != nil {
		writeCodedError(w, http.StatusInternalServerError,
			apiErrors.Wrap(apiErrors.CodeRegistryDeleteFailed, "remove connection", err))
		return
	}

	log.Printf("httpapi: connection %s removed", connectionID)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "disconnected"})
}

// SendResponse is the JSON body for a dispatch request.
type SendResponse struct {
	Message string `json:"message"`
	dispatch.Result
}

// handleSend dispatches a command to all of the caller's agents.
// Route shape: POST /send/{command}.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apiErrors.CodeInternal, "Only POST is allowed")
		return
	}

	command := strings.TrimPrefix(r.URL.Path, "/send/")
	if command == "" || strings.Contains(command, "/") {
		writeError(w, http.StatusBadRequest, apiErrors.CodeCommandNotAllowed, "Missing or malformed command")
		return
	}

	// Reject unknown commands before touching the key store or registry.
	if !s.router.Allowed(command) {
		writeCodedError(w, http.StatusBadRequest, apiErrors.CommandNotAllowed(command))
		return
	}

	token := r.Header.Get(authHeader)
	if token == "" {
		writeError(w, http.StatusBadRequest, apiErrors.CodeAuthMissingToken, "Missing authentication token")
		return
	}

	allowed, err := s.gate.Authorize(r.Context(), token)
	if err != nil {
		writeCodedError(w, http.StatusInternalServerError, err)
		return
	}
	if !allowed {
		writeError(w, http.StatusUnauthorized, apiErrors.CodeAuthInvalidToken, "Invalid authentication token")
		return
	}

	result, err := s.router.Dispatch(r.Context(), token, command)
	if err != nil {
		if apiErrors.IsCode(err, apiErrors.CodeCommandNotAllowed) {
			writeCodedError(w, http.StatusBadRequest, err)
			return
		}
		writeCodedError(w, http.StatusInternalServerError, err)
		return
	}

	// Zero targets is a normal outcome: the key is valid but no agents
	// are connected. The aggregate counts let the caller tell that apart
	// from partial delivery failure.
	message := "Success!"
	if result.Targets == 0 {
		message = "No connected clients to send command to"
	}

	writeJSON(w, http.StatusOK, SendResponse{Message: message, Result: result})
}

// KeyResponse is the JSON body for key issuance.
type KeyResponse struct {
	Key string `json:"key"`
}

// handleGetKey mints a new API key.
func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apiErrors.CodeInternal, "Only GET is allowed")
		return
	}

	if !s.keyLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, apiErrors.CodeKeyRateLimited, "Too many key requests, please wait")
		return
	}

	key, err := s.issuer.Issue(r.Context())
	if err != nil {
		writeCodedError(w, http.StatusInternalServerError,
			apiErrors.Wrap(apiErrors.CodeKeyIssueFailed, "issue key", err))
		return
	}

	writeJSON(w, http.StatusOK, KeyResponse{Key: key})
}

// TickResponse is the JSON body for a manually fired trigger.
type TickResponse struct {
	Message string `json:"message"`
	dispatch.Result
}

// handleKeepaliveTick runs one keepalive sweep.
// Restricted to loopback: the periodic schedule or a local operator fires
// this, never a remote caller.
func (s *Server) handleKeepaliveTick(w http.ResponseWriter, r *http.Request) {
	if !isLoopbackRequest(r) {
		log.Printf("httpapi: rejected /tick/keepalive from non-loopback address: %s", r.RemoteAddr)
		writeError(w, http.StatusForbidden, apiErrors.CodeInternal, "Tick endpoints are only available from localhost")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apiErrors.CodeInternal, "Only POST is allowed")
		return
	}

	result, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		writeCodedError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, TickResponse{Message: "Success", Result: result})
}

// handleWarmupTick runs one warm-up probe against the gateway.
func (s *Server) handleWarmupTick(w http.ResponseWriter, r *http.Request) {
	if !isLoopbackRequest(r) {
		log.Printf("httpapi: rejected /tick/warmup from non-loopback address: %s", r.RemoteAddr)
		writeError(w, http.StatusForbidden, apiErrors.CodeInternal, "Tick endpoints are only available from localhost")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apiErrors.CodeInternal, "Only POST is allowed")
		return
	}

	if err := s.pusher.Warm(r.Context()); err != nil {
		writeCodedError(w, http.StatusInternalServerError,
			apiErrors.Internal("warm-up probe failed", err))
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "OK (Warmer path)"})
}

// StatusResponse is the JSON body for /status.
type StatusResponse struct {
	UptimeSec   int64           `json:"uptime_sec"`
	Connections int             `json:"connections"`
	Triggers    map[string]bool `json:"triggers"`
}

// handleStatus reports uptime, connection count, and trigger states.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apiErrors.CodeInternal, "Only GET is allowed")
		return
	}

	ids, err := s.registry.ListAll(r.Context())
	if err != nil {
		writeCodedError(w, http.StatusInternalServerError,
			apiErrors.Wrap(apiErrors.CodeRegistryQueryFailed, "list connections", err))
		return
	}

	triggers := make(map[string]bool, len(s.triggers))
	for _, t := range s.triggers {
		triggers[t.Name()] = t.Enabled()
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		UptimeSec:   int64(time.Since(s.startedAt).Seconds()),
		Connections: len(ids),
		Triggers:    triggers,
	})
}
