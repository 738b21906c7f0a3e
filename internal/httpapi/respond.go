package httpapi

import (
	"encoding/json"
	"net/http"

	apiErrors "github.com/compcontrol/api/internal/errors"
)

// ErrorResponse is the JSON body for error conditions.
type ErrorResponse struct {
	// ErrorCode is the stable dotted taxonomy code (e.g., "auth.invalid_token").
	ErrorCode string `json:"error_code"`

	// Message is a human-readable description.
	Message string `json:"message"`
}

// MessageResponse is the JSON body for simple success responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError sends a JSON error response with a taxonomy code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		ErrorCode: code,
		Message:   message,
	})
}

// writeCodedError maps an error to a JSON error response.
func writeCodedError(w http.ResponseWriter, status int, err error) {
	code, message := apiErrors.ToCodeAndMessage(err)
	writeError(w, status, code, message)
}
