package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// ErrorKind classifies identity failures. Callers branch on the kind, never on
// transport details.
type ErrorKind string

const (
	// KindInvalidCredentials means the user supplied a wrong email/password.
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	// KindUnauthorized means a credential was presented and rejected (expired or revoked).
	KindUnauthorized ErrorKind = "unauthorized"
	// KindServerUnreachable means the identity endpoint could not be reached or failed.
	// The credential's validity is unknown, not disproven.
	KindServerUnreachable ErrorKind = "server_unreachable"
	// KindMalformedResponse means the server violated the response contract.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindInvalidInput means submitted data was rejected (client or server side).
	KindInvalidInput ErrorKind = "invalid_input"
	// KindUnsupported means the configured gateway does not offer the operation.
	KindUnsupported ErrorKind = "unsupported"
	// KindSuperseded means a newer session operation replaced this one and its
	// result was discarded.
	KindSuperseded ErrorKind = "superseded"
)

var defaultMessages = map[ErrorKind]string{
	KindInvalidCredentials: "Invalid email or password.",
	KindUnauthorized:       "Your session has expired. Please sign in again.",
	KindServerUnreachable:  "The sign-in service is unavailable. Please try again shortly.",
	KindMalformedResponse:  "Something went wrong while signing in.",
	KindInvalidInput:       "Some of the submitted details are invalid.",
	KindUnsupported:        "This operation is not available.",
	KindSuperseded:         "Sign-in was interrupted. Please try again.",
}

// Error is the classified failure returned by identity gateways and the session manager.
type Error struct {
	Kind ErrorKind
	// Message is a human-readable description, usually taken from the server.
	Message string
	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by kind so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// UserMessage returns the single line shown to a user.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if m, ok := defaultMessages[e.Kind]; ok {
		return m
	}
	return defaultMessages[KindMalformedResponse]
}

// Retryable reports whether retrying the same request may succeed.
func (e *Error) Retryable() bool { return e.Kind == KindServerUnreachable }

// NewError builds a classified error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// InvalidCredentials creates a KindInvalidCredentials error.
func InvalidCredentials(message string) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: message}
}

// Unauthorized creates a KindUnauthorized error.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// ServerUnreachable creates a KindServerUnreachable error wrapping cause.
func ServerUnreachable(cause error) *Error {
	return &Error{Kind: KindServerUnreachable, Cause: cause}
}

// MalformedResponse creates a KindMalformedResponse error.
func MalformedResponse(message string, cause error) *Error {
	return &Error{Kind: KindMalformedResponse, Message: message, Cause: cause}
}

// InvalidInput creates a KindInvalidInput error.
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// Unsupported creates a KindUnsupported error.
func Unsupported(message string) *Error {
	return &Error{Kind: KindUnsupported, Message: message}
}

// Classify converts any error into a *Error. Already classified errors are
// returned as-is; transport failures become KindServerUnreachable and
// everything else KindMalformedResponse. Classify(nil) returns nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if isTransportError(err) {
		return ServerUnreachable(err)
	}
	return MalformedResponse("", err)
}

// KindOf returns the classified kind of err, or "" for nil.
func KindOf(err error) ErrorKind {
	if ae := Classify(err); ae != nil {
		return ae.Kind
	}
	return ""
}

func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
