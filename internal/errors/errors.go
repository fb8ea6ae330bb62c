// Package errors provides the error taxonomy of the intake service.
// Typed errors carry context for logs; sentinels make errors.Is checks cheap
// at the HTTP boundary.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// New is an alias for the standard library errors.New.
var New = errors.New

// Sentinel errors
var (
	// ErrMalformedResponse indicates the AI output could not be parsed as JSON
	ErrMalformedResponse = errors.New("malformed response")

	// ErrLookupMiss indicates no catalog or remote match was found
	ErrLookupMiss = errors.New("lookup miss")

	// ErrNetworkFailure indicates a call to an external service failed
	ErrNetworkFailure = errors.New("network failure")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSessionClosed indicates the editing session was closed
	ErrSessionClosed = errors.New("session closed")

	// ErrStaleResult indicates a result arrived after its session moved on
	ErrStaleResult = errors.New("stale result")
)

// MalformedResponseError wraps a JSON parse failure of AI output
type MalformedResponseError struct {
	Snippet string
	Err     error
}

// Error implements the error interface
func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed AI response: %v", e.Err)
	}
	return "malformed AI response"
}

// Is implements errors.Is support
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// Unwrap implements errors.Unwrap
func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// NewMalformedResponseError creates a new MalformedResponseError
func NewMalformedResponseError(snippet string, err error) *MalformedResponseError {
	return &MalformedResponseError{Snippet: snippet, Err: err}
}

// NetworkError represents a failed call to an external HTTP service
type NetworkError struct {
	Service    string
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request to %s failed (status %d): %s", e.Service, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request to %s failed: %s", e.Service, e.Endpoint, e.Message)
}

// Is implements errors.Is support
func (e *NetworkError) Is(target error) bool {
	if target == ErrNetworkFailure {
		return true
	}
	return e.StatusCode == 404 && target == ErrNotFound
}

// Unwrap implements errors.Unwrap
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the call could succeed
func (e *NetworkError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(service, endpoint string, statusCode int, err error) *NetworkError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &NetworkError{
		Service:    service,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    msg,
		Err:        err,
	}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsMalformedResponse checks if an error is a malformed AI response
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsNetworkFailure checks if an error came from an external call
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Is and As re-export the standard helpers so callers need one import.
var (
	Is = errors.Is
	As = errors.As
)

// StatusMessage converts any failure into the status line shown to staff.
// A nil error yields an empty string.
func StatusMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedResponse):
		return "Error: Invalid JSON response from AI. Cannot confirm."
	case errors.Is(err, ErrStaleResult), errors.Is(err, context.Canceled):
		return "Operation cancelled."
	case errors.Is(err, ErrSessionClosed):
		return "Session closed."
	case errors.Is(err, ErrNetworkFailure):
		return fmt.Sprintf("Network error: %v", err)
	case errors.Is(err, ErrInvalidInput):
		var ve *ValidationError
		if errors.As(err, &ve) && ve.Message != "" {
			return ve.Message
		}
		return fmt.Sprintf("Invalid input: %v", err)
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Not found: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
