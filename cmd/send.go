package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// runSend implements the "compcontrol send <command>" command.
// It dispatches a command to every agent connected under the caller's key.
func runSend(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)

	server := fs.String("server", "http://127.0.0.1:8080", "Base URL of the control API")
	key := fs.String("key", "", "API key (default: $COMPCONTROL_KEY)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: compcontrol send [options] <command>

Dispatch a command (sleep, hibernate, shutdown, lock) to all agents
connected under your API key.

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

	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	command := fs.Arg(0)

	apiKey := *key
	if apiKey == "" {
		apiKey = os.Getenv("COMPCONTROL_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(stderr, "Error: no API key (use --key or set COMPCONTROL_KEY)")
		return 1
	}

	req, err := http.NewRequest(http.MethodPost, *server+"/send/"+command, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: build request: %v\n", err)
		return 1
	}
	req.Header.Set("auth", apiKey)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: request failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Error: server returned %d: %s\n", resp.StatusCode, body)
		return 1
	}

	var parsed struct {
		Message   string `json:"message"`
		Targets   int    `json:"targets"`
		Delivered int    `json:"delivered"`
		Pruned    int    `json:"pruned"`
		Failed    int    `json:"failed"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		fmt.Fprintf(stdout, "%s\n", body)
		return 0
	}

	fmt.Fprintf(stdout, "%s (targets=%d delivered=%d pruned=%d failed=%d)\n",
		parsed.Message, parsed.Targets, parsed.Delivered, parsed.Pruned, parsed.Failed)
	return 0
}
