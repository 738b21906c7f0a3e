// Package httpapi exposes the control API over HTTP.
//
// The external gateway terminates the WebSocket side and calls in here: it
// authorizes and registers new connections via /connect, reports closures
// via /disconnect, and the per-connection push path flows the other way
// through the gateway package. Operators call /send/{command} and /getkey.
package httpapi

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/compcontrol/api/internal/auth"
	"github.com/compcontrol/api/internal/dispatch"
	"github.com/compcontrol/api/internal/gateway"
	"github.com/compcontrol/api/internal/registry"
)

// Server is the HTTP API server.
type Server struct {
	addr     string
	gate     *auth.Gate
	issuer   *auth.Issuer
	registry *registry.Registry
	router   *dispatch.Router
	sweeper  *dispatch.Sweeper
	pusher   gateway.Pusher
	triggers []*dispatch.Trigger

	// keyLimiter throttles key issuance. Keys are cheap to mint but each
	// one is a standing credential, so the endpoint is rate limited.
	keyLimiter *rate.Limiter

	tlsConfig  *tls.Config
	httpServer *http.Server
	startedAt  time.Time
}

// Options configures a Server.
type Options struct {
	Addr              string
	Gate              *auth.Gate
	Issuer            *auth.Issuer
	Registry          *registry.Registry
	Router            *dispatch.Router
	Sweeper           *dispatch.Sweeper
	Pusher            gateway.Pusher
	Triggers          []*dispatch.Trigger
	KeyIssuePerMinute int

	// TLSConfig, when set, serves the API over HTTPS.
	TLSConfig *tls.Config
}

// New creates the API server.
func New(opts Options) *Server {
	perMinute := opts.KeyIssuePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	return &Server{
		addr:       opts.Addr,
		gate:       opts.Gate,
		issuer:     opts.Issuer,
		registry:   opts.Registry,
		router:     opts.Router,
		sweeper:    opts.Sweeper,
		pusher:     opts.Pusher,
		triggers:   opts.Triggers,
		keyLimiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		tlsConfig:  opts.TLSConfig,
	}
}

// createMux creates the HTTP mux with all endpoints.
func (s *Server) createMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Gateway-facing connection lifecycle hooks.
	mux.HandleFunc("/connect", s.handleConnect)
	mux.HandleFunc("/disconnect", s.handleDisconnect)

	// Operator command dispatch: /send/{command}
	mux.HandleFunc("/send/", s.handleSend)

	// API key issuance.
	mux.HandleFunc("/getkey", s.handleGetKey)

	// Externally invokable scheduler triggers, loopback-restricted.
	mux.HandleFunc("/tick/keepalive", s.handleKeepaliveTick)
	mux.HandleFunc("/tick/warmup", s.handleWarmupTick)

	// Health check endpoint for monitoring.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Status endpoint for the CLI.
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// Start begins serving. It returns once the listener has been set up;
// serve errors other than graceful shutdown are logged.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createMux(),
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.tlsConfig,
	}

	scheme := "http"
	if s.tlsConfig != nil {
		scheme = "https"
	}
	log.Printf("httpapi: listening on %s (%s)", s.addr, scheme)

	go func() {
		var err error
		if s.tlsConfig != nil {
			// Certificates come from TLSConfig, not files.
			err = s.httpServer.ListenAndServeTLS("", "")
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Printf("httpapi: serve error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Printf("httpapi: shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the request handler, for tests that drive the mux
// directly through httptest.
func (s *Server) Handler() http.Handler {
	return s.createMux()
}
