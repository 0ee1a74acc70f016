// Package remote defines the error taxonomy shared by the homeserver and
// Nexus clients, so callers can decide between retrying (unavailable,
// rate-limited) and giving up (unauthorized, malformed request).
package remote

import (
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnavailable  Kind = "unavailable"
	KindRateLimited  Kind = "rate_limited"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindBadRequest   Kind = "bad_request"
	KindBadResponse  Kind = "bad_response"
)

// Error is a failure talking to an external collaborator.
type Error struct {
	Kind   Kind
	Op     string
	Status int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (http %d)", e.Op, e.Kind, e.Status)
}

// Retryable reports whether the failure is worth retrying by the caller.
// This core never retries on its own.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable || e.Kind == KindRateLimited
}

// NewError classifies an HTTP status into the taxonomy.
func NewError(op string, status int) *Error {
	kind := KindBadResponse
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindUnauthorized
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindUnavailable
	case status >= 400:
		kind = KindBadRequest
	}
	return &Error{Kind: kind, Op: op, Status: status}
}

// Unreachable marks a transport-level failure (no HTTP status at all).
func Unreachable(op string) *Error {
	return &Error{Kind: KindUnavailable, Op: op}
}

// BadResponse marks a 2xx reply whose body could not be interpreted.
func BadResponse(op string) *Error {
	return &Error{Kind: KindBadResponse, Op: op, Status: http.StatusOK}
}
