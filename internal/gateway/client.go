// Package gateway is the client side of the external gateway's management
// API. The gateway terminates the WebSocket connections; this client pushes
// payloads to a connected peer by POSTing to the gateway's per-connection
// endpoint.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apiErrors "github.com/compcontrol/api/internal/errors"
)

// Pusher delivers payloads to individual connections.
type Pusher interface {
	// Push sends a payload to one connection. A "gone" condition (the
	// gateway's canonical signal that the peer disconnected without the
	// disconnect hook firing) is reported via IsGone.
	Push(ctx context.Context, connectionID string, payload []byte) error

	// Warm issues a lightweight probe against the push endpoint, keeping
	// pooled connections and the gateway route warm between dispatches.
	Warm(ctx context.Context) error
}

// Client implements Pusher over HTTP. A payload for connection <id> is
// POSTed to <baseURL>/<id>.
type Client struct {
	baseURL string
	httpc   *http.Client
	timeout time.Duration
}

// NewClient creates a push client for the given gateway endpoint.
// timeout bounds each individual delivery attempt; a hung target must not
// stall a sweep for other targets.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
		timeout: timeout,
	}
}

// Push sends a payload to one connection.
func (c *Client) Push(ctx context.Context, connectionID string, payload []byte) error {
	if connectionID == "" {
		return apiErrors.New(apiErrors.CodeDeliveryBadTarget, "empty connection ID")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + "/" + url.PathEscape(connectionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return apiErrors.Wrap(apiErrors.CodeDeliveryBadTarget, "build push request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apiErrors.Wrap(apiErrors.CodeDeliveryTimeout,
				fmt.Sprintf("push to %s timed out", connectionID), err)
		}
		return apiErrors.Wrap(apiErrors.CodeDeliveryFailed,
			fmt.Sprintf("push to %s failed", connectionID), err)
	}
	defer func() {
		// Drain so the underlying connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusGone:
		return apiErrors.DeliveryGone(connectionID)
	default:
		return apiErrors.New(apiErrors.CodeDeliveryFailed,
			fmt.Sprintf("push to %s failed with status %d", connectionID, resp.StatusCode))
	}
}

// Warm probes the push endpoint without targeting a connection.
// Any response, including an error status, means the route is warm;
// only transport failures are reported.
func (c *Client) Warm(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("build warm request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("warm probe: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return nil
}

// IsGone reports whether a delivery error is the gateway's "connection gone"
// condition, meaning the target should be pruned from the registry.
func IsGone(err error) bool {
	return apiErrors.IsCode(err, apiErrors.CodeDeliveryGone)
}
