package strand

import (
	"fmt"
	"net/http"
)

// Failure is an application-defined operation error.
//
// Failures indicate an error that is "expected" within the domain of the
// operation that produced it. They form part of the operation's API and
// should usually be handled by the caller. Failures are never retried.
type Failure struct {
	// Type is an application-defined string identifying the failure. It
	// serves the same purpose as an error code.
	Type string

	// Message is an optional human-readable description of the failure.
	Message string
}

func (err Failure) Error() string {
	if err.Type == "" {
		return err.Message
	}

	return fmt.Sprintf("%s: %s", err.Type, err.Message)
}

// Retryable marks failures as permanent; retrying a business-rule error
// cannot change its outcome.
func (Failure) Retryable() bool {
	return false
}

// IsFailure returns true if err is a Failure.
func IsFailure(err error) bool {
	_, ok := err.(Failure)
	return ok
}

// IsFailureType returns true if err is a Failure with a type of t.
func IsFailureType(t string, err error) bool {
	if t == "" {
		panic("failure type is empty")
	}

	f, _ := err.(Failure)
	return f.Type == t
}

// TransportError is a network or protocol level problem reaching the remote
// source.
type TransportError struct {
	// StatusCode is the HTTP status, when the transport is HTTP-based.
	StatusCode int

	// Body is the raw response body, if any.
	Body []byte

	// Err is the underlying error, if any.
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error: %s", e.Err)
	}

	return fmt.Sprintf("transport error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error should be considered transient.
func (e *TransportError) Retryable() bool {
	if e.Err != nil {
		return true
	}

	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		(e.StatusCode >= 500 && e.StatusCode <= 599)
}

// ValidationError reports a response whose shape does not match the
// expected schema.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation error: %s: %s", e.Reason, e.Err)
	}

	return fmt.Sprintf("validation error: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Retryable marks validation errors as permanent; the response shape will
// not change on retry.
func (e *ValidationError) Retryable() bool {
	return false
}
