package pipeline

import (
	"errors"
	"fmt"
)

// ErrorClass groups task failures for reporting
type ErrorClass string

const (
	ClassTransport    ErrorClass = "transport"
	ClassAPI          ErrorClass = "api"
	ClassMalformed    ErrorClass = "malformed"
	ClassMissingTable ErrorClass = "missing_table"
	ClassTransform    ErrorClass = "transform"
	ClassUnknown      ErrorClass = "unknown"
)

// TransportFailure is a network-level failure of one fetch.
// Timeouts are never retried; other transport failures are retried before this is returned.
type TransportFailure struct {
	Attempts int
	Timeout  bool
	Err      error
}

func (e *TransportFailure) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out: %v", e.Err)
	}
	return fmt.Sprintf("network request failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransportFailure) Unwrap() error { return e.Err }

// APIError is a non-zero error_no returned by a reachable server
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Sprintf("api error: %s (error_no: %d)", msg, e.Code)
}

// MalformedResponse means the body could not be parsed as a response envelope
type MalformedResponse struct {
	Err error
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("failed to parse response: %v", e.Err)
}

func (e *MalformedResponse) Unwrap() error { return e.Err }

// ErrMissingTable means a success envelope carried no data.table section
var ErrMissingTable = errors.New("response data has no table section")

// TransformError means a table could not be reshaped for its dataset kind
type TransformError struct {
	Reason string
}

func (e *TransformError) Error() string {
	return "transform failed: " + e.Reason
}

// ConfigurationError rejects a batch spec before any task is created
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid batch configuration (%s): %s", e.Field, e.Reason)
}

// ErrAuthInvalid rejects a batch whose credentials fail the pre-flight check
var ErrAuthInvalid = errors.New("credentials are missing or invalid, sign in to the console and retry")

// Classify maps a task error onto its reporting class
func Classify(err error) ErrorClass {
	var (
		transport *TransportFailure
		apiErr    *APIError
		malformed *MalformedResponse
		transform *TransformError
	)
	switch {
	case errors.As(err, &transport):
		return ClassTransport
	case errors.As(err, &apiErr):
		return ClassAPI
	case errors.As(err, &malformed):
		return ClassMalformed
	case errors.Is(err, ErrMissingTable):
		return ClassMissingTable
	case errors.As(err, &transform):
		return ClassTransform
	default:
		return ClassUnknown
	}
}
