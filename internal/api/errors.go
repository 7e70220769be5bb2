package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind buckets gateway failures so callers can choose a recovery path without
// string matching.
type Kind int

const (
	// KindNetwork covers transport failures and unclassifiable responses.
	KindNetwork Kind = iota
	// KindAuth means bad credentials or an invalid/expired token.
	KindAuth
	// KindValidation means the backend rejected the request input.
	KindValidation
	// KindNotFound means the referenced resource no longer exists.
	KindNotFound
	// KindConflict means the operation is no longer applicable (e.g. cancel
	// on a document that already finished).
	KindConflict
	// KindRateLimit means the backend throttled the request.
	KindRateLimit
	// KindService means an upstream failure inside the backend.
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindService:
		return "service"
	default:
		return "network"
	}
}

// Error is the uniform failure every gateway operation returns. Message is
// human-readable, taken from the response body's detail field when present.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the failure kind from any error chain; non-gateway errors
// classify as network failures.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// IsTransient reports whether the error is a transport-level failure that a
// background poller should swallow and retry on its next tick.
func IsTransient(err error) bool {
	return KindOf(err) == KindNetwork
}

func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge || status == http.StatusUnsupportedMediaType || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= 500:
		return KindService
	default:
		return KindNetwork
	}
}

func transportError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error(), cause: err}
}
