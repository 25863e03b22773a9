package controller

import (
	"context"

	"github.com/Mez0/TempBox/internal/models"
)

// AccountService supplies full account snapshots and executes account
// lifecycle requests. Snapshots are complete sequences, never deltas.
type AccountService interface {
	// ActiveAccounts streams the full active-account snapshot on every change.
	ActiveAccounts() <-chan []models.Account

	// ArchivedAccounts streams the full archived-account snapshot on every change.
	ArchivedAccounts() <-chan []models.Account

	// Activate moves an account into the active set.
	Activate(ctx context.Context, account models.Account) error

	// Archive moves an account out of the active set.
	Archive(ctx context.Context, account models.Account) error

	// Remove drops the local record without touching the backend.
	Remove(ctx context.Context, account models.Account) error

	// Delete removes the mailbox at the backend and locally.
	Delete(ctx context.Context, account models.Account) error

	// Refresh re-issues the account's credentials and returns the
	// updated record carrying the fresh token.
	Refresh(ctx context.Context, account models.Account) (models.Account, error)
}

// MessageService executes message requests against the backend.
type MessageService interface {
	// GetAllMessages lists message summaries for the token's account.
	GetAllMessages(ctx context.Context, token string) ([]models.Message, error)

	// GetMessage fetches one message in full.
	GetMessage(ctx context.Context, id, token string) (models.Message, error)

	// MarkMessageSeen flips the seen flag and returns the updated message.
	MarkMessageSeen(ctx context.Context, id string, seen bool, token string) (models.Message, error)

	// DeleteMessage removes a message at the backend.
	DeleteMessage(ctx context.Context, id, token string) error
}

// ListenerService maintains the live channels of active accounts.
type ListenerService interface {
	// Received streams pushed messages across all account channels.
	Received() <-chan models.AccountMessage

	// Deleted streams deleted message ids across all account channels.
	Deleted() <-chan models.AccountMessageID

	// Status streams snapshots of the per-account connection-state map.
	Status() <-chan map[string]models.ConnectionState

	// AddChannel starts listening for an account.
	AddChannel(account models.Account)

	// RemoveChannel stops listening for an account.
	RemoveChannel(account models.Account)
}

// Notifier delivers user-facing alerts for newly received messages.
// Delivery is fire and forget; failures are logged, never retried.
type Notifier interface {
	Deliver(ctx context.Context, notification Notification) error
}
