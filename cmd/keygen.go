package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"
)

// runKeygen implements the "compcontrol keygen" command.
// It requests a fresh API key from a running service instance.
func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	server := fs.String("server", "http://127.0.0.1:8080", "Base URL of the control API")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: compcontrol keygen [options]

Request a new API key. Store the key securely; it is shown only once and
authorizes both agent connections and command dispatch.

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

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(*server + "/getkey")
	if err != nil {
		fmt.Fprintf(stderr, "Error: request failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(stderr, "Error: server returned %d: %s\n", resp.StatusCode, body)
		return 1
	}

	var parsed struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		fmt.Fprintf(stderr, "Error: failed to parse response: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, parsed.Key)
	return 0
}
