// Command wsagent is a development agent for compcontrol.
// It connects to the external gateway's WebSocket endpoint with an API key
// and prints the command and keepalive frames it receives. It does not
// execute anything; it exists for manual end-to-end verification.
//
// Usage: go run ./cmd/wsagent --url wss://gateway.example.com/ws --key <api-key>
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:9090/ws", "Gateway WebSocket URL")
	key := flag.String("key", os.Getenv("COMPCONTROL_KEY"), "API key (default: $COMPCONTROL_KEY)")
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "Error: no API key (use --key or set COMPCONTROL_KEY)")
		os.Exit(1)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Reconnect with exponential backoff; a successful session resets it.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry forever

	for {
		start := time.Now()
		err := runSession(*url, *key, interrupt)
		if err == nil {
			return // interrupted
		}

		if time.Since(start) > time.Minute {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		fmt.Fprintf(os.Stderr, "connection lost: %v (reconnecting in %s)\n", err, wait)

		select {
		case <-interrupt:
			return
		case <-time.After(wait):
		}
	}
}

// runSession connects once and reads frames until the connection drops or
// the agent is interrupted. Returns nil only on interrupt.
func runSession(url, key string, interrupt chan os.Signal) error {
	header := http.Header{}
	header.Set("auth", key)

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", url)

	done := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}

			var frame struct {
				Type    string `json:"type"`
				Subtype string `json:"subtype"`
			}
			if err := json.Unmarshal(data, &frame); err != nil {
				fmt.Printf("raw: %s\n", data)
				continue
			}

			switch frame.Type {
			case "command":
				fmt.Printf("command received: %s\n", frame.Subtype)
			case "nop":
				fmt.Printf("keepalive: %s\n", frame.Subtype)
			default:
				fmt.Printf("frame: type=%s subtype=%s\n", frame.Type, frame.Subtype)
			}
		}
	}()

	select {
	case err := <-done:
		return err
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
}
