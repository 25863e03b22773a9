package api

import (
	"errors"
	"fmt"
)

// Request errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is a backend-reported failure carrying a human-readable
// message. It is the only error category surfaced to the user as an
// advisory; everything else is logged only.
type APIError struct {
	// Status is the HTTP status code.
	Status int

	// Message is the backend-supplied description.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: %s (status %d)", e.Message, e.Status)
}

// BackendMessage returns the backend-supplied description, marking the
// error as user-surfaceable.
func (e *APIError) BackendMessage() string {
	return e.Message
}

// Is allows errors.Is to match the sentinel categories.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case 401:
		return target == ErrUnauthorized
	case 404:
		return target == ErrNotFound
	}
	return false
}

// AsAPIError unwraps err to an *APIError if it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
