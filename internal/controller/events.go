package controller

import (
	"github.com/Mez0/TempBox/internal/models"
)

// event is the closed set of inputs consumed by the controller loop.
// Every state mutation enters through exactly one of these, so the
// loop goroutine is the single writer of all shared state.
type event interface {
	isEvent()
}

// activeSnapshotEvent carries a full active-account snapshot.
type activeSnapshotEvent struct {
	accounts []models.Account
}

// archivedSnapshotEvent carries a full archived-account snapshot.
type archivedSnapshotEvent struct {
	accounts []models.Account
}

// messageReceivedEvent carries a message pushed on a live channel.
type messageReceivedEvent struct {
	account models.Account
	message models.Message
}

// messageDeletedEvent carries a deletion pushed on a live channel.
type messageDeletedEvent struct {
	account   models.Account
	messageID string
}

// statusSnapshotEvent carries a connection-state map snapshot.
type statusSnapshotEvent struct {
	states map[string]models.ConnectionState
}

// fetchCompletedEvent is the completion of an initial bulk fetch.
// seq tags the request; completions with a stale seq are discarded so
// an out-of-order result cannot resurrect old data.
type fetchCompletedEvent struct {
	accountID string
	seq       uint64
	messages  []models.Message
	err       error
}

// markSeenCompletedEvent is the completion of a mark-seen request.
type markSeenCompletedEvent struct {
	accountID string
	messageID string
	message   models.Message
	err       error
}

// fetchMessageCompletedEvent is the completion of a full-message fetch.
type fetchMessageCompletedEvent struct {
	accountID string
	messageID string
	message   models.Message
	err       error
}

// selectEvent changes the current selection. An empty selection clears it.
type selectEvent struct {
	selection models.Selection
}

// openSignalEvent is the external activation signal carried by a
// notification's routing metadata.
type openSignalEvent struct {
	accountID string
	messageID string
}

// activateAccountEvent requests activation of an archived account.
type activateAccountEvent struct {
	account models.Account
}

// archiveAccountEvent requests archiving of an account.
type archiveAccountEvent struct {
	account models.Account
}

// removeAccountEvent requests removal of the local record.
type removeAccountEvent struct {
	account models.Account
}

// deleteAccountEvent requests deletion of the backend mailbox.
type deleteAccountEvent struct {
	account models.Account
}

// deleteCompletedEvent is the completion of a delete request.
type deleteCompletedEvent struct {
	account models.Account
	err     error
}

// refreshAccountEvent requests a credential refresh.
type refreshAccountEvent struct {
	account models.Account
}

// refreshCompletedEvent is the completion of a refresh request. On
// success the account's live channel is restarted and the bulk fetch
// re-triggered.
type refreshCompletedEvent struct {
	account models.Account
	err     error
}

// syncEvent is a no-op used to wait for the loop to drain.
type syncEvent struct {
	done chan struct{}
}

func (activeSnapshotEvent) isEvent() {}
func (archivedSnapshotEvent) isEvent() {}
func (messageReceivedEvent) isEvent() {}
func (messageDeletedEvent) isEvent() {}
func (statusSnapshotEvent) isEvent() {}
func (fetchCompletedEvent) isEvent() {}
func (markSeenCompletedEvent) isEvent() {}
func (fetchMessageCompletedEvent) isEvent() {}
func (selectEvent) isEvent() {}
func (openSignalEvent) isEvent() {}
func (activateAccountEvent) isEvent() {}
func (archiveAccountEvent) isEvent() {}
func (removeAccountEvent) isEvent() {}
func (deleteAccountEvent) isEvent() {}
func (deleteCompletedEvent) isEvent() {}
func (refreshAccountEvent) isEvent() {}
func (refreshCompletedEvent) isEvent() {}
func (syncEvent) isEvent() {}
