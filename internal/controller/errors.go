package controller

import (
	"errors"
	"fmt"
)

// BackendError is implemented by request errors that carry a
// backend-supplied, human-readable message. Only this category is
// surfaced to the user as an advisory; every other failure is logged.
type BackendError interface {
	error
	BackendMessage() string
}

// asAdvisoryError extracts the advisory text from a backend-reported
// error, if err is one.
func asAdvisoryError(err error) (string, bool) {
	var backendErr BackendError
	if errors.As(err, &backendErr) && backendErr.BackendMessage() != "" {
		return backendErr.BackendMessage(), true
	}
	return "", false
}

// activationLimitMessage is the advisory body for the active-account
// bound.
func activationLimitMessage(limit int) string {
	return fmt.Sprintf("At most %d accounts can be active at once. Archive one to activate another.", limit)
}
