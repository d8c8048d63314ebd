// Package core provides the shared types and error taxonomy for the chat relay.
package core

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a relay error at the boundary where it is produced.
type ErrorKind string

const (
	// ErrorKindValidation indicates a malformed client request (400).
	ErrorKindValidation ErrorKind = "validation_error"
	// ErrorKindRateLimit indicates the client was rejected by admission control (429).
	ErrorKindRateLimit ErrorKind = "rate_limit_error"
	// ErrorKindUpstreamAuth indicates missing or rejected upstream credentials (500).
	// This is an operator problem, not a client problem, so it is not a 401.
	ErrorKindUpstreamAuth ErrorKind = "upstream_auth_error"
	// ErrorKindUpstream indicates a transport or model failure upstream (500
	// before the first token, abrupt close after it).
	ErrorKindUpstream ErrorKind = "upstream_error"
	// ErrorKindToolExecution indicates a tool failed while the model was
	// generating. It is surfaced as a tool result payload, never as a
	// request-level failure.
	ErrorKindToolExecution ErrorKind = "tool_execution_error"
)

// RelayError is the tagged error produced at the service boundary.
// Handlers switch on Kind instead of probing concrete types deep in the stack.
type RelayError struct {
	Kind    ErrorKind `json:"type"`
	Message string    `json:"message"`
	// Upstream names the external collaborator that failed, when one did.
	Upstream string `json:"upstream,omitempty"`
	// Err is the wrapped cause, kept out of client responses.
	Err error `json:"-"`
}

func (e *RelayError) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Upstream, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode maps the error kind to the status sent to the client.
// Tool execution errors never reach a response body on their own; if one
// escapes anyway it is treated as an internal failure.
func (e *RelayError) HTTPStatusCode() int {
	switch e.Kind {
	case ErrorKindValidation:
		return http.StatusBadRequest
	case ErrorKindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to the response body shape.
func (e *RelayError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Kind,
			"message": e.Message,
		},
	}
}

// NewValidationError creates a validation error (400).
func NewValidationError(message string, err error) *RelayError {
	return &RelayError{Kind: ErrorKindValidation, Message: message, Err: err}
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(message string) *RelayError {
	return &RelayError{Kind: ErrorKindRateLimit, Message: message}
}

// NewUpstreamAuthError creates an upstream credential error (500).
func NewUpstreamAuthError(upstream, message string) *RelayError {
	return &RelayError{Kind: ErrorKindUpstreamAuth, Message: message, Upstream: upstream}
}

// NewUpstreamError creates an upstream transport or model error.
func NewUpstreamError(upstream, message string, err error) *RelayError {
	return &RelayError{Kind: ErrorKindUpstream, Message: message, Upstream: upstream, Err: err}
}

// NewToolExecutionError creates a tool execution error. Callers fold it into
// the tool result payload so generation can continue.
func NewToolExecutionError(tool, message string, err error) *RelayError {
	return &RelayError{Kind: ErrorKindToolExecution, Message: message, Upstream: tool, Err: err}
}

// ClassifyUpstreamStatus converts an upstream HTTP status into a RelayError.
// 401/403 from a collaborator means our credentials are bad, which is an
// operator-facing failure rather than something the client can fix.
func ClassifyUpstreamStatus(upstream string, statusCode int, message string) *RelayError {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewUpstreamAuthError(upstream, message)
	default:
		return NewUpstreamError(upstream, fmt.Sprintf("status %d: %s", statusCode, message), nil)
	}
}
