// Package errs defines the internal error taxonomy shared by the graph
// source client and the simulation core. Every error that crosses a
// component boundary is classified into one of these kinds so the HTTP
// collaborator can map it to a status code without string-sniffing.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindServiceNotFound    Kind = "ServiceNotFound"
	KindStaleData          Kind = "StaleData"
	KindSourceUnavailable  Kind = "SourceUnavailable"
	KindSourceTimeout      Kind = "SourceTimeout"
	KindUpstreamError      Kind = "UpstreamError"
	KindInternal           Kind = "InternalError"
)

// Error is the concrete error type returned across component boundaries.
// It wraps an optional underlying cause and never includes it in the
// message surfaced to callers when that cause might carry credentials.
type Error struct {
	Kind    Kind
	Message string
	cause   error

	// LastUpdatedSecondsAgo carries staleness context for StaleData errors.
	LastUpdatedSecondsAgo int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the error kind to the wire-level status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindServiceNotFound:
		return http.StatusNotFound
	case KindStaleData, KindSourceUnavailable:
		return http.StatusServiceUnavailable
	case KindSourceTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newErr(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func Validation(format string, args ...interface{}) *Error {
	return newErr(KindValidation, nil, format, args...)
}

func ServiceNotFound(format string, args ...interface{}) *Error {
	return newErr(KindServiceNotFound, nil, format, args...)
}

func StaleData(lastUpdatedSecondsAgo int) *Error {
	e := newErr(KindStaleData, nil, "graph data is stale (last updated %ds ago); simulations require fresh data", lastUpdatedSecondsAgo)
	e.LastUpdatedSecondsAgo = lastUpdatedSecondsAgo
	return e
}

func SourceUnavailable(cause error, endpoint string) *Error {
	return newErr(KindSourceUnavailable, cause, "graph source unavailable: %s", endpoint)
}

func SourceTimeout(cause error, endpoint string) *Error {
	return newErr(KindSourceTimeout, cause, "graph source timed out: %s", endpoint)
}

func UpstreamErr(cause error, format string, args ...interface{}) *Error {
	return newErr(KindUpstreamError, cause, format, args...)
}

func Internal(cause error, format string, args ...interface{}) *Error {
	return newErr(KindInternal, cause, format, args...)
}

// As reports whether err (or something it wraps) is an *Error, and if
// so returns it. Thin wrapper over errors.As for call-site brevity.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else
// KindInternal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
