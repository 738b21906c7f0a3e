// Package errors provides standardized error codes for the control API.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (auth, command, registry, delivery, storage)
//   - error: The specific error type within that domain
//
// These codes are stable and can be used by API callers and client agents for
// programmatic error handling. Human-readable messages are provided alongside codes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
// These are stable identifiers that callers can rely on for error handling.
const (
	// Auth domain - token validation and authorization
	CodeAuthMissingToken = "auth.missing_token" // No auth token supplied with the request
	CodeAuthInvalidToken = "auth.invalid_token" // Token is not a known API key
	CodeAuthBackendFault = "auth.backend_fault" // Key store unreachable; request denied fail-closed

	// Command domain - dispatch validation
	CodeCommandNotAllowed = "command.not_allowed" // Command is not in the allow-list
	CodeCommandNoTargets  = "command.no_targets"  // Key has no live connections (informational)

	// Registry domain - connection registry operations
	CodeRegistryInsertFailed = "registry.insert_failed" // Failed to record a new connection
	CodeRegistryDeleteFailed = "registry.delete_failed" // Failed to remove a connection
	CodeRegistryQueryFailed  = "registry.query_failed"  // Failed to enumerate connections

	// Delivery domain - pushing payloads through the gateway
	CodeDeliveryGone      = "delivery.gone"      // Gateway reports the peer is no longer connected
	CodeDeliveryTimeout   = "delivery.timeout"   // Delivery attempt exceeded its deadline
	CodeDeliveryFailed    = "delivery.failed"    // Gateway rejected or failed the push
	CodeDeliveryBadTarget = "delivery.bad_target" // Connection ID cannot form a valid push URL

	// Storage domain - database and persistence errors
	CodeStorageOpenFailed  = "storage.open_failed"  // Backend open/connect failed
	CodeStorageQueryFailed = "storage.query_failed" // Backend query failed
	CodeStorageSaveFailed  = "storage.save_failed"  // Failed to persist data

	// Bus domain - change-event feed errors
	CodeBusClosed        = "bus.closed"         // Publish or subscribe on a closed bus
	CodeBusPublishFailed = "bus.publish_failed" // Broker rejected the event

	// Keys domain - API key issuance
	CodeKeyIssueFailed = "keys.issue_failed" // Failed to mint or persist a new key
	CodeKeyRateLimited = "keys.rate_limited" // Too many key requests

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal server error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "auth.invalid_token")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// If the error is a CodedError, returns its code.
// Falls back to CodeUnknown for unrecognized errors.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// GetMessage extracts a human-readable message from an error.
// If the error is a CodedError, returns its message.
// Otherwise, returns the error's Error() string.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}

	return err.Error()
}

// ToCodeAndMessage extracts both code and message from an error.
// This is the primary function for converting errors to HTTP responses.
func ToCodeAndMessage(err error) (code, message string) {
	if err == nil {
		return "", ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code, coded.Message
	}

	return CodeUnknown, err.Error()
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors for frequently used error types.

// MissingToken creates an "auth.missing_token" error.
func MissingToken() *CodedError {
	return New(CodeAuthMissingToken, "no auth token supplied")
}

// InvalidToken creates an "auth.invalid_token" error.
func InvalidToken() *CodedError {
	return New(CodeAuthInvalidToken, "token is not a valid API key")
}

// AuthBackendFault creates an "auth.backend_fault" error.
// The authorization decision is still Deny; this code signals that the
// denial came from key-store uncertainty rather than an invalid token.
func AuthBackendFault(cause error) *CodedError {
	return Wrap(CodeAuthBackendFault, "key store unavailable, denying fail-closed", cause)
}

// CommandNotAllowed creates a "command.not_allowed" error.
func CommandNotAllowed(command string) *CodedError {
	return New(CodeCommandNotAllowed, fmt.Sprintf("command %q is not in the allow-list", command))
}

// DeliveryGone creates a "delivery.gone" error.
// This indicates the gateway's canonical signal that the peer disconnected
// without the disconnect hook firing; the caller should prune the connection.
func DeliveryGone(connectionID string) *CodedError {
	return New(CodeDeliveryGone, fmt.Sprintf("connection %s is gone", connectionID))
}

// Internal creates an "error.internal" error.
func Internal(message string, cause error) *CodedError {
	return Wrap(CodeInternal, message, cause)
}
