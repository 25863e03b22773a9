package controller

import (
	"github.com/Mez0/TempBox/internal/models"
)

// AccountDiff is the ordered result of diffing two account snapshots.
type AccountDiff struct {
	// Added holds accounts present in the new snapshot only, in
	// snapshot order.
	Added []models.Account

	// Removed holds accounts present in the old snapshot only, in
	// old-snapshot order.
	Removed []models.Account
}

// DiffAccounts computes the membership diff between two full account
// snapshots, keyed by account id. Membership is a set property: an
// account that merely changed position or non-identity fields is in
// neither Added nor Removed, so a reorder produces no transitions.
func DiffAccounts(old, new []models.Account) AccountDiff {
	oldIDs := idSet(old)
	newIDs := idSet(new)

	var diff AccountDiff
	for _, account := range old {
		if !newIDs[account.ID] {
			diff.Removed = append(diff.Removed, account)
		}
	}
	for _, account := range new {
		if !oldIDs[account.ID] {
			diff.Added = append(diff.Added, account)
		}
	}
	return diff
}

func idSet(accounts []models.Account) map[string]bool {
	set := make(map[string]bool, len(accounts))
	for _, account := range accounts {
		set[account.ID] = true
	}
	return set
}
