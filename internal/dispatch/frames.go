// Package dispatch routes commands and maintenance pings to connected agents.
//
// Both the command router and the keepalive sweeper fan out deliveries over
// a bounded number of workers, classify each target's outcome independently,
// and prune targets the gateway reports as gone. One target's failure never
// affects another's delivery.
package dispatch

import "encoding/json"

// Frame is the wire payload pushed to agents.
// Agents act on Type; Subtype selects the command or names the ping.
type Frame struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

// commandFrame builds the payload for a dispatched command.
func commandFrame(command string) []byte {
	data, _ := json.Marshal(Frame{Type: "command", Subtype: command})
	return data
}

// pingFrame builds the keepalive payload. Agents treat "nop" frames as
// no work; the frame exists to keep the gateway from recycling the socket.
func pingFrame() []byte {
	data, _ := json.Marshal(Frame{Type: "nop", Subtype: "ping"})
	return data
}
