package controller

import (
	"github.com/Mez0/TempBox/internal/models"
)

// reconcileActive diffs the incoming snapshot against the stored
// active sequence and fires the activation/deactivation routines
// exactly once per transition. The diff and the snapshot replacement
// happen in one loop step, so no observer ever reads a torn list.
//
// Must only be called from the controller loop.
func (c *Controller) reconcileActive(snapshot []models.Account) {
	diff := DiffAccounts(c.active, snapshot)

	for _, account := range diff.Removed {
		c.deactivateAccount(account)
	}
	for _, account := range diff.Added {
		c.activateAccount(account)
	}

	c.active = snapshot
	c.publish(models.EventTypeAccountsReplaced, models.EntityTypeSystem, "")
}

// activateAccount bootstraps the per-account resources: an empty store
// in the loading state, the live channel, and the initial bulk fetch.
func (c *Controller) activateAccount(account models.Account) {
	c.logger.Info().Str("account_id", account.ID).Str("address", account.Address).Msg("account activated")

	c.stores[account.ID] = models.NewFetchingStore()
	c.listener.AddChannel(account)
	c.startFetch(account)
	c.publish(models.EventTypeAccountActivated, models.EntityTypeAccount, account.ID)
}

// deactivateAccount tears the resources down. The store entry is
// removed entirely; late completions for it are dropped by their
// handlers.
func (c *Controller) deactivateAccount(account models.Account) {
	c.logger.Info().Str("account_id", account.ID).Msg("account deactivated")

	c.listener.RemoveChannel(account)
	delete(c.stores, account.ID)
	delete(c.fetchSeq, account.ID)

	if c.selection.AccountID == account.ID {
		c.setSelection(models.Selection{})
	}
	c.publish(models.EventTypeAccountDeactivated, models.EntityTypeAccount, account.ID)
}
