package controller

import (
	"github.com/Mez0/TempBox/internal/logging"
	"github.com/Mez0/TempBox/internal/models"
)

// handleSelect applies a selection change. Selecting a message under
// an active account drives the mark-seen and full-fetch requests; a
// deselection only updates the visible selection.
//
// Must only be called from the controller loop.
func (c *Controller) handleSelect(selection models.Selection) {
	c.setSelection(selection)

	if selection.AccountID == "" || selection.MessageID == "" {
		return
	}
	account, ok := c.findActive(selection.AccountID)
	if !ok {
		return
	}

	c.markSeen(account, selection.MessageID)
	c.fetchComplete(account, selection.MessageID)
}

// setSelection updates the selection and its backing message value.
func (c *Controller) setSelection(selection models.Selection) {
	c.selection = selection
	c.selected = nil

	if selection.MessageID != "" {
		if store, ok := c.stores[selection.AccountID]; ok {
			if i := store.Find(selection.MessageID); i >= 0 {
				selected := store.Messages[i]
				c.selected = &selected
			}
		}
	}

	c.publish(models.EventTypeSelectionChanged, models.EntityTypeMessage, selection.MessageID)
}

// markSeen issues a mark-seen request, guarded so re-selecting an
// already seen message issues nothing.
func (c *Controller) markSeen(account models.Account, messageID string) {
	store, ok := c.stores[account.ID]
	if !ok {
		return
	}
	i := store.Find(messageID)
	if i < 0 || store.Messages[i].Seen {
		return
	}

	c.requests.Add(1)
	go func() {
		defer c.requests.Done()
		message, err := c.messages.MarkMessageSeen(c.ctx, messageID, true, account.Token)
		c.post(markSeenCompletedEvent{
			accountID: account.ID,
			messageID: messageID,
			message:   message,
			err:       err,
		})
	}()
}

// fetchComplete issues a full-message fetch, guarded so an already
// complete message issues nothing.
func (c *Controller) fetchComplete(account models.Account, messageID string) {
	store, ok := c.stores[account.ID]
	if !ok {
		return
	}
	i := store.Find(messageID)
	if i < 0 || store.Messages[i].IsComplete {
		return
	}

	c.requests.Add(1)
	go func() {
		defer c.requests.Done()
		message, err := c.messages.GetMessage(c.ctx, messageID, account.Token)
		c.post(fetchMessageCompletedEvent{
			accountID: account.ID,
			messageID: messageID,
			message:   message,
			err:       err,
		})
	}()
}

// handleMarkSeenCompleted merges a successful result; failures leave
// local state untouched. No optimistic update, no retry.
func (c *Controller) handleMarkSeenCompleted(ev markSeenCompletedEvent) {
	if ev.err != nil {
		c.logger.Warn().
			Str("account_id", ev.accountID).
			Str("message_id", ev.messageID).
			Str("error", logging.RedactErr(ev.err)).
			Msg("mark seen failed")
		return
	}
	c.upsert(ev.accountID, ev.message)
}

// handleFetchMessageCompleted merges a successful full fetch with the
// completeness flag forced true.
func (c *Controller) handleFetchMessageCompleted(ev fetchMessageCompletedEvent) {
	if ev.err != nil {
		c.logger.Warn().
			Str("account_id", ev.accountID).
			Str("message_id", ev.messageID).
			Str("error", logging.RedactErr(ev.err)).
			Msg("full fetch failed")
		return
	}

	message := ev.message
	message.IsComplete = true
	c.upsert(ev.accountID, message)
}

// handleOpenSignal resolves the external activation signal: selection
// is set only when both the account and the message still exist.
func (c *Controller) handleOpenSignal(ev openSignalEvent) {
	if _, ok := c.findActive(ev.accountID); !ok {
		return
	}
	store, ok := c.stores[ev.accountID]
	if !ok || store.Find(ev.messageID) < 0 {
		return
	}
	c.handleSelect(models.Selection{AccountID: ev.accountID, MessageID: ev.messageID})
}
