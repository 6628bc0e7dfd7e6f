package apiclient

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindNetwork means no response arrived at all.
	KindNetwork Kind = iota + 1
	// KindAuth is a 401 on an authenticated call; the session is already cleared.
	KindAuth
	// KindBackend is any other non-2xx response.
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Error is returned for every failed backend call. By the time a caller sees
// one, the matching notice has already been queued for the visitor unless
// the call ran under Quiet.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error

	quiet bool
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("network: %v", e.Err)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsStatus returns true if err (or any wrapped error) is an Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}

// IsAuth reports whether err means the visitor must log in again.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

// Notified reports whether the client already told the visitor about err.
func Notified(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && !apiErr.quiet
}
