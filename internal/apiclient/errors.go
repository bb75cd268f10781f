package apiclient

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailure: the backend rejected the supplied user name or password.
	ErrAuthenticationFailure = errors.New("authentication failed")
	// ErrSessionExpired: a stored bearer credential is stale or invalid.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetworkFailure: the backend could not be reached.
	ErrNetworkFailure = errors.New("backend unreachable")
	// ErrNotFound: the referenced user or post does not exist.
	ErrNotFound = errors.New("not found")
)

// StatusError is any other non-2xx answer.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: api status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: api status %d: %s", e.Endpoint, e.Code, e.Body)
}
