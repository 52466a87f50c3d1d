package osuapi

import (
	"errors"
	"fmt"
)

// ErrorKind classifies client errors. Each kind implies a different caller
// remediation: transport errors may be retried, protocol errors are
// programming bugs, rate_limited/service_unavailable mean "later".
type ErrorKind string

const (
	// ErrorKindTransport represents connection/IO level failures.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindProtocol represents malformed request construction. These
	// indicate a programming error and must never be retried.
	ErrorKindProtocol ErrorKind = "protocol"

	// ErrorKindAPI represents a structured error body returned by the
	// service.
	ErrorKindAPI ErrorKind = "api"

	// ErrorKindDecode represents a response body that did not match the
	// expected schema. The raw body is preserved for diagnostics.
	ErrorKindDecode ErrorKind = "decode"

	// ErrorKindBadRequest represents HTTP 400.
	ErrorKindBadRequest ErrorKind = "bad_request"

	// ErrorKindServiceUnavailable represents HTTP 503.
	ErrorKindServiceUnavailable ErrorKind = "service_unavailable"

	// ErrorKindRateLimited represents HTTP 429.
	ErrorKindRateLimited ErrorKind = "rate_limited"

	// ErrorKindMissingCredential means a request was attempted without a
	// bearer token.
	ErrorKindMissingCredential ErrorKind = "missing_credential"
)

// Error is the unified error type returned by the client.
type Error struct {
	Kind    ErrorKind
	Message string

	// Body holds the raw response bytes for decode errors.
	Body []byte

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("osu api %s error: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("osu api %s error: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("osu api %s error: %s", e.Kind, e.Message)
	default:
		return fmt.Sprintf("osu api %s error", e.Kind)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" if err is not a client Error.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func newTransportError(err error) *Error {
	return &Error{Kind: ErrorKindTransport, Err: err}
}

func newProtocolError(err error) *Error {
	return &Error{Kind: ErrorKindProtocol, Err: err}
}

func newDecodeError(err error, body []byte) *Error {
	return &Error{Kind: ErrorKindDecode, Err: err, Body: body}
}
