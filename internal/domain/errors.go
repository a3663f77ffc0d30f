package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies every failure surfaced by the generation pipeline.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindBadRequest ErrorKind = "bad_request"
	KindUpstream   ErrorKind = "upstream"
	KindTimeout    ErrorKind = "timeout"
	KindTransport  ErrorKind = "transport"
	KindIO         ErrorKind = "io"
)

// Error carries a failure kind plus the most specific context available:
// the offending request field for validation failures, the upstream HTTP
// status for provider failures.
type Error struct {
	Kind           ErrorKind
	Field          string
	UpstreamStatus int
	Message        string
	Err            error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or out-of-range input, naming the field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// BadRequest reports a semantically invalid combination, such as an
// unsupported extension for the requested kind.
func BadRequest(field, message string) *Error {
	return &Error{Kind: KindBadRequest, Field: field, Message: message}
}

// Upstream reports a failure status returned by a provider.
func Upstream(status int, message string) *Error {
	return &Error{Kind: KindUpstream, UpstreamStatus: status, Message: message}
}

// Timeout reports an exceeded per-call deadline or total job budget.
func Timeout(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Err: err}
}

// Transport reports a network-level failure talking to a provider.
func Transport(message string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, Err: err}
}

// IO reports a storage failure persisting an artifact.
func IO(message string, err error) *Error {
	return &Error{Kind: KindIO, Message: message, Err: err}
}

// FromTransport classifies a raw round-trip failure: exceeded deadlines
// become timeouts, everything else is a transport failure.
func FromTransport(op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(op+": deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(op+": deadline exceeded", err)
	}
	return Transport(op+": request failed", err)
}

// KindOf extracts the kind from err, defaulting to transport for errors
// produced outside the taxonomy.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// HTTPStatus maps err onto the response status served to the caller.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WireCode maps err onto the stable tag carried in error response bodies.
func WireCode(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "validation_error"
	case KindBadRequest:
		return "bad_request"
	case KindUpstream:
		return "provider_error"
	case KindTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}

// UserMessage extracts a human-readable message from err, hiding wrapped
// internals behind the taxonomy message when one is present.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
