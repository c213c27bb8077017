// Package errors provides the request error taxonomy with HTTP mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a request failure.
type Kind int

const (
	// KindInternal covers unreachable stores and unexpected failures.
	// Detail is logged server-side, never echoed to the caller.
	KindInternal Kind = iota
	// KindInvalidInput covers missing/invalid uploads, malformed
	// coordinates and missing login fields.
	KindInvalidInput
	// KindAuthFailure covers bad credentials. The message is identical
	// for unknown user and wrong password.
	KindAuthFailure
	// KindNotFound covers lookups over an empty data set.
	KindNotFound
	// KindProcessing covers detector runs that produced no usable output.
	KindProcessing
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindAuthFailure:
		return "auth_failure"
	case KindNotFound:
		return "not_found"
	case KindProcessing:
		return "processing_failure"
	default:
		return "internal"
	}
}

// HTTPStatus returns the response status for this kind of failure.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindAuthFailure:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a client-safe message. The wrapped
// cause carries internal detail for logging only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a classified error with a client-safe message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an underlying error, keeping it as internal detail.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of an error. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ClientMessage returns the message safe to echo to the caller. Internal
// and processing failures get a generic message regardless of cause.
func ClientMessage(err error) string {
	kind := KindOf(err)
	switch kind {
	case KindInternal:
		return "internal server error"
	case KindProcessing:
		return "error processing the image"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
