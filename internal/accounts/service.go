// Package accounts implements the account service backed by SQLite.
// Every mutation publishes a fresh full snapshot of the active and
// archived sequences; consumers never receive deltas.
package accounts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Mez0/TempBox/internal/api"
	"github.com/Mez0/TempBox/internal/db"
	"github.com/Mez0/TempBox/internal/logging"
	"github.com/Mez0/TempBox/internal/models"
)

// Service manages account records and their lifecycle at the backend.
type Service struct {
	repo   *db.AccountRepository
	client *api.Client
	logger zerolog.Logger

	active   chan []models.Account
	archived chan []models.Account
}

// NewService creates a Service on top of the repository and API client.
func NewService(repo *db.AccountRepository, client *api.Client) *Service {
	return &Service{
		repo:     repo,
		client:   client,
		logger:   logging.Component("accounts"),
		active:   make(chan []models.Account, 16),
		archived: make(chan []models.Account, 16),
	}
}

// ActiveAccounts returns the push stream of full active-account snapshots.
func (s *Service) ActiveAccounts() <-chan []models.Account {
	return s.active
}

// ArchivedAccounts returns the push stream of full archived-account snapshots.
func (s *Service) ArchivedAccounts() <-chan []models.Account {
	return s.archived
}

// Load reads the stored accounts and publishes the initial snapshots.
func (s *Service) Load(ctx context.Context) error {
	return s.publish(ctx)
}

// Create provisions a new mailbox at the backend, authenticates it,
// and stores it as an active account.
func (s *Service) Create(ctx context.Context, address, password string) (models.Account, error) {
	account, err := s.client.CreateAccount(ctx, address, password)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.client.Token(ctx, address, password)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to authenticate new account: %w", err)
	}
	account.Token = token

	if err := s.repo.Create(ctx, &account); err != nil {
		return models.Account{}, err
	}

	s.logger.Info().Str("account_id", account.ID).Str("address", account.Address).Msg("account created")
	return account, s.publish(ctx)
}

// Activate moves an archived account back into the active set.
func (s *Service) Activate(ctx context.Context, account models.Account) error {
	if err := s.repo.SetArchived(ctx, account.ID, false); err != nil {
		return err
	}
	return s.publish(ctx)
}

// Archive moves an account out of the active set, keeping it locally.
func (s *Service) Archive(ctx context.Context, account models.Account) error {
	if err := s.repo.SetArchived(ctx, account.ID, true); err != nil {
		return err
	}
	return s.publish(ctx)
}

// Remove drops the local record without touching the backend mailbox.
func (s *Service) Remove(ctx context.Context, account models.Account) error {
	if err := s.repo.Delete(ctx, account.ID); err != nil {
		return err
	}
	return s.publish(ctx)
}

// Delete removes the mailbox at the backend, then the local record.
func (s *Service) Delete(ctx context.Context, account models.Account) error {
	if err := s.client.DeleteAccount(ctx, account.ID, account.Token); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, account.ID); err != nil {
		return err
	}
	s.logger.Info().Str("account_id", account.ID).Msg("account deleted")
	return s.publish(ctx)
}

// Refresh re-issues the bearer token for an account and returns the
// updated record. The controller restarts the account's live channel
// with the returned credentials after a successful refresh.
func (s *Service) Refresh(ctx context.Context, account models.Account) (models.Account, error) {
	token, err := s.client.Token(ctx, account.Address, account.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := s.repo.UpdateToken(ctx, account.ID, token); err != nil {
		return models.Account{}, err
	}
	account.Token = token
	return account, s.publish(ctx)
}

// publish reads the current rows and pushes both snapshots.
func (s *Service) publish(ctx context.Context) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	var active, archived []models.Account
	for _, account := range all {
		if account.IsArchived {
			archived = append(archived, account)
		} else {
			active = append(active, account)
		}
	}

	pushSnapshot(s.active, active)
	pushSnapshot(s.archived, archived)
	return nil
}

// pushSnapshot delivers the latest snapshot, displacing the oldest
// buffered one if the consumer is behind. Only the newest snapshot
// matters; intermediate ones are safe to drop.
func pushSnapshot(ch chan []models.Account, snapshot []models.Account) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
