package main

import (
	"context"
	cryptotls "crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/compcontrol/api/internal/auth"
	"github.com/compcontrol/api/internal/bus"
	"github.com/compcontrol/api/internal/config"
	"github.com/compcontrol/api/internal/dispatch"
	"github.com/compcontrol/api/internal/gateway"
	"github.com/compcontrol/api/internal/httpapi"
	"github.com/compcontrol/api/internal/registry"
	"github.com/compcontrol/api/internal/storage"
	apitls "github.com/compcontrol/api/internal/tls"
)

// runServe implements the "compcontrol serve" command.
// It wires the storage backend, the change-event feed, the dispatchers and
// the HTTP API together, then blocks until interrupted.
func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.compcontrol/config.toml)")
	addr := fs.String("addr", "", "Listen address (overrides config)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: compcontrol serve [options]

Run the control API service. The external gateway calls /connect,
/disconnect and the operator-facing /send/{command} and /getkey endpoints.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if cfg.ConnectionBaseURL == "" {
		fmt.Fprintln(stderr, "Error: connection_base_url (CONNECTION_BASE_URL) must be configured")
		return 1
	}

	store, err := storage.NewStore(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open storage: %v\n", err)
		return 1
	}
	defer store.Close()

	feed, err := bus.NewBus(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create change feed: %v\n", err)
		return 1
	}
	defer feed.Close()

	reg := registry.New(store, feed)
	gate := auth.NewGate(store)
	issuer := auth.NewIssuer(store)
	pusher := gateway.NewClient(cfg.ConnectionBaseURL, time.Duration(cfg.DeliveryTimeoutMs)*time.Millisecond)
	router := dispatch.NewRouter(reg, pusher, cfg.AllowedCommands, cfg.DeliveryConcurrency)
	sweeper := dispatch.NewSweeper(reg, pusher, cfg.DeliveryConcurrency)

	// Periodic triggers. Both stay disabled until the toggler observes a
	// connection, so an idle deployment does no periodic work at all.
	keepaliveTrigger := dispatch.NewTrigger("keepalive",
		time.Duration(cfg.KeepaliveIntervalSec)*time.Second,
		func(ctx context.Context) {
			if _, err := sweeper.Sweep(ctx); err != nil {
				fmt.Fprintf(stderr, "keepalive sweep failed: %v\n", err)
			}
		})
	warmupTrigger := dispatch.NewTrigger("warmup",
		time.Duration(cfg.WarmupIntervalSec)*time.Second,
		func(ctx context.Context) {
			if err := pusher.Warm(ctx); err != nil {
				fmt.Fprintf(stderr, "warm-up probe failed: %v\n", err)
			}
		})
	defer keepaliveTrigger.Close()
	defer warmupTrigger.Close()

	toggler := dispatch.NewToggler(reg, keepaliveTrigger, warmupTrigger)
	if err := toggler.Register(context.Background(), feed); err != nil {
		fmt.Fprintf(stderr, "Error: failed to subscribe toggler: %v\n", err)
		return 1
	}

	var tlsConfig *cryptotls.Config
	if cfg.TLSEnable {
		info, err := apitls.EnsureCertificate(apitls.CertConfig{
			CertPath: cfg.TLSCertPath,
			KeyPath:  cfg.TLSKeyPath,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to prepare TLS certificate: %v\n", err)
			return 1
		}
		if info.IsGenerated {
			fmt.Fprintf(stdout, "generated self-signed certificate %s\n", info.CertPath)
		}
		fmt.Fprintf(stdout, "certificate fingerprint: %s\n", info.Fingerprint)

		tlsConfig, err = apitls.LoadTLSConfig(info.CertPath, info.KeyPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to load TLS configuration: %v\n", err)
			return 1
		}
	}

	server := httpapi.New(httpapi.Options{
		Addr:              cfg.Addr,
		Gate:              gate,
		Issuer:            issuer,
		Registry:          reg,
		Router:            router,
		Sweeper:           sweeper,
		Pusher:            pusher,
		Triggers:          []*dispatch.Trigger{keepaliveTrigger, warmupTrigger},
		KeyIssuePerMinute: cfg.KeyIssuePerMinute,
		TLSConfig:         tlsConfig,
	})

	if err := server.Start(); err != nil {
		fmt.Fprintf(stderr, "Error: failed to start server: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "compcontrol serving on %s (push endpoint %s)\n", cfg.Addr, cfg.ConnectionBaseURL)

	// Block until interrupted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Fprintln(stdout, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(stderr, "Error: shutdown: %v\n", err)
		return 1
	}

	return 0
}
