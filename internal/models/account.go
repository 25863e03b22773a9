package models

import (
	"time"
)

// ConnectionState describes the live listener channel for an account.
type ConnectionState string

const (
	ConnectionOpened     ConnectionState = "opened"
	ConnectionClosed     ConnectionState = "closed"
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionErrored    ConnectionState = "errored"
)

// Account represents a mailbox account at the backend mail service.
type Account struct {
	// ID is the backend-assigned identifier for the account.
	ID string `json:"id"`

	// Address is the full email address of the mailbox.
	Address string `json:"address"`

	// Token is the bearer token used for API requests on behalf of
	// this account. Never logged; see logging.Redact.
	Token string `json:"token"`

	// Password is the mailbox password used to re-issue tokens.
	Password string `json:"password,omitempty"`

	// IsArchived indicates the account has been moved out of the
	// active set but is still kept locally.
	IsArchived bool `json:"is_archived"`

	// CreatedAt is when the account was created at the backend.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the local record was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks if the account record is usable.
func (a *Account) Validate() error {
	validation := &ValidationErrors{}
	if a.ID == "" {
		validation.Add("id", ErrMissingAccountID)
	}
	if a.Address == "" {
		validation.Add("address", ErrMissingAddress)
	}
	return validation.Err()
}

// AccountIDs returns the ids of the given accounts in order.
func AccountIDs(accounts []Account) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids
}
