package controller

import (
	"github.com/Mez0/TempBox/internal/models"
)

// mergeMessage combines a newly arrived representation of a message
// with the stored one. Two invariants hold:
//
//   - A non-empty stored intro is never clobbered by an empty one.
//   - Completeness is monotonic: summary can become complete, never
//     the reverse. When a summary-tier update lands on a complete
//     message the stored body is carried over.
func mergeMessage(old, new models.Message) models.Message {
	merged := new

	if old.Intro != "" {
		merged.Intro = old.Intro
	}

	if old.IsComplete && !new.IsComplete {
		merged.IsComplete = true
		if merged.Text == "" {
			merged.Text = old.Text
		}
		if len(merged.HTML) == 0 {
			merged.HTML = old.HTML
		}
	}

	return merged
}

// upsert inserts or merges a message into the account's store.
// Returns true when the message is a true insert; only inserts warrant
// a notification. Messages for accounts without a store are dropped
// silently: the account is no longer active and its events are moot.
//
// Must only be called from the controller loop.
func (c *Controller) upsert(accountID string, message models.Message) bool {
	store, ok := c.stores[accountID]
	if !ok {
		return false
	}

	inserted := false
	if i := store.Find(message.ID); i >= 0 {
		message = mergeMessage(store.Messages[i], message)
		store.Messages[i] = message
	} else {
		store.Messages = append(store.Messages, message)
		inserted = true
	}

	// Keep an open message view live.
	if c.selection.AccountID == accountID && c.selection.MessageID == message.ID {
		selected := message
		c.selected = &selected
	}

	c.publishStoreUpdated(accountID)
	return inserted
}

// removeMessage deletes a message from the account's store, if present.
// Deleting the selected message clears the selection.
//
// Must only be called from the controller loop.
func (c *Controller) removeMessage(accountID, messageID string) {
	store, ok := c.stores[accountID]
	if !ok {
		return
	}

	i := store.Find(messageID)
	if i < 0 {
		return
	}
	store.Messages = append(store.Messages[:i], store.Messages[i+1:]...)

	if c.selection.AccountID == accountID && c.selection.MessageID == messageID {
		c.setSelection(models.Selection{})
	}

	c.publishStoreUpdated(accountID)
}

// bulkReplace swaps the account's store wholesale with the outcome of
// an initial bulk fetch. Success installs the fetched summaries;
// failure installs an empty store carrying the error.
//
// Must only be called from the controller loop.
func (c *Controller) bulkReplace(accountID string, messages []models.Message, err error) {
	if _, ok := c.stores[accountID]; !ok {
		return
	}

	if err != nil {
		c.stores[accountID] = &models.MessageStore{Err: err}
	} else {
		c.stores[accountID] = &models.MessageStore{Messages: messages}
	}

	// The selected message may have a fresher representation now.
	if c.selection.AccountID == accountID && c.selection.MessageID != "" {
		if i := c.stores[accountID].Find(c.selection.MessageID); i >= 0 {
			selected := c.stores[accountID].Messages[i]
			c.selected = &selected
		} else {
			c.setSelection(models.Selection{})
		}
	}

	c.publishStoreUpdated(accountID)
}
