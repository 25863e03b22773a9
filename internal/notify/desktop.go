// Package notify delivers desktop notifications for new messages.
package notify

import (
	"context"
	"strings"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"github.com/Mez0/TempBox/internal/controller"
	"github.com/Mez0/TempBox/internal/logging"
)

// Desktop delivers alerts through the OS notification surface.
type Desktop struct {
	enabled bool
	logger  zerolog.Logger
}

// NewDesktop creates a Desktop notifier. When disabled, Deliver is a
// no-op.
func NewDesktop(enabled bool) *Desktop {
	return &Desktop{
		enabled: enabled,
		logger:  logging.Component("notify"),
	}
}

// Deliver shows the alert. Delivery is best effort; the caller logs
// failures and never retries.
func (d *Desktop) Deliver(_ context.Context, notification controller.Notification) error {
	if !d.enabled {
		return nil
	}

	var body strings.Builder
	if notification.Subtitle != "" {
		body.WriteString(notification.Subtitle)
	}
	if notification.Body != "" && notification.Body != notification.Subtitle {
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(notification.Body)
	}

	d.logger.Debug().
		Str("account_id", notification.AccountID).
		Str("message_id", notification.MessageID).
		Msg("delivering notification")

	if notification.Sound {
		return beeep.Alert(notification.Title, body.String(), "")
	}
	return beeep.Notify(notification.Title, body.String(), "")
}
