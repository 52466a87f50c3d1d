package osuapi

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  &Error{Kind: ErrorKindRateLimited},
			want: "osu api rate_limited error",
		},
		{
			name: "with message",
			err:  &Error{Kind: ErrorKindAPI, Message: "invalid scope"},
			want: "osu api api error: invalid scope",
		},
		{
			name: "with wrapped error",
			err:  &Error{Kind: ErrorKindTransport, Err: io.EOF},
			want: "osu api transport error: EOF",
		},
		{
			name: "message and wrapped error",
			err:  &Error{Kind: ErrorKindDecode, Message: "ranking page", Err: io.ErrUnexpectedEOF},
			want: "osu api decode error: ranking page: unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := newTransportError(io.EOF)
	if !errors.Is(err, io.EOF) {
		t.Error("errors.Is should reach the wrapped error")
	}

	wrapped := fmt.Errorf("oauth token exchange: %w", err)
	var apiErr *Error
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find *Error through fmt.Errorf wrapping")
	}
	if apiErr.Kind != ErrorKindTransport {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, ErrorKindTransport)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"plain error", io.EOF, ""},
		{"nil", nil, ""},
		{"direct", &Error{Kind: ErrorKindBadRequest}, ErrorKindBadRequest},
		{"wrapped", fmt.Errorf("page 2: %w", &Error{Kind: ErrorKindRateLimited}), ErrorKindRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeErrorKeepsBody(t *testing.T) {
	body := []byte(`<html>not json</html>`)
	err := newDecodeError(io.ErrUnexpectedEOF, body)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatal("expected *Error")
	}
	if string(apiErr.Body) != string(body) {
		t.Errorf("Body = %q, want original bytes preserved", apiErr.Body)
	}
}
