package homeassistant

import (
	"errors"
	"fmt"
)

// Domain-specific errors for Home Assistant calls.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidConfig is returned when the client is misconfigured.
	ErrInvalidConfig = errors.New("homeassistant: invalid configuration")

	// ErrRequestFailed is returned when the request could not be completed
	// (network error, timeout, cancelled context).
	ErrRequestFailed = errors.New("homeassistant: request failed")

	// ErrUnauthorized is returned on 401/403. It is never retried.
	ErrUnauthorized = errors.New("homeassistant: unauthorized")

	// ErrServiceCall is returned when Home Assistant answers with an error status.
	ErrServiceCall = errors.New("homeassistant: service call failed")
)

// StatusError carries the HTTP status and a bounded excerpt of the body.
type StatusError struct {
	Code int
	Body string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}
