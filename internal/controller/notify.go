package controller

import (
	"context"

	"github.com/Mez0/TempBox/internal/models"
)

// Notification is the display payload for a newly received message.
// AccountID and MessageID are opaque routing metadata: an "open"
// action feeds them back through OpenFromNotification to reconstruct
// the selection.
type Notification struct {
	Title    string
	Subtitle string
	Body     string
	Sound    bool

	AccountID string
	MessageID string
}

// buildNotification constructs the alert payload for a message. The
// account id comes from the owning channel, not the message body; a
// backend listing may omit the accountId field.
func buildNotification(accountID string, message models.Message, sound bool) Notification {
	return Notification{
		Title:     message.From.Display(),
		Subtitle:  message.Subject,
		Body:      message.Excerpt(),
		Sound:     sound,
		AccountID: accountID,
		MessageID: message.ID,
	}
}

// dispatchNotification delivers the alert for a true insert. Delivery
// runs off the loop; failures are logged and never retried.
func (c *Controller) dispatchNotification(accountID string, message models.Message) {
	if c.notifier == nil {
		return
	}

	notification := buildNotification(accountID, message, c.config.NotifySound)

	c.requests.Add(1)
	go func() {
		defer c.requests.Done()
		if err := c.notifier.Deliver(context.Background(), notification); err != nil {
			c.logger.Warn().
				Str("message_id", notification.MessageID).
				Err(err).
				Msg("notification delivery failed")
		}
	}()
}
