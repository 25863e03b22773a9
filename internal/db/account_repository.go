package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Mez0/TempBox/internal/models"
)

// Account repository errors.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountAlreadyExists = errors.New("account with this address already exists")
)

// AccountRepository handles account persistence.
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create adds a new account to the database.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, address, token, password, is_archived, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		account.ID,
		account.Address,
		account.Token,
		account.Password,
		boolToInt(account.IsArchived),
		account.CreatedAt.Format(time.RFC3339),
		account.UpdatedAt.Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// Get retrieves an account by id.
func (r *AccountRepository) Get(ctx context.Context, id string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, address, token, password, is_archived, created_at, updated_at
		FROM accounts
		WHERE id = ?
	`, id)
	return scanAccount(row)
}

// List retrieves all accounts ordered by creation time. Archived and
// active accounts are both returned; callers partition by IsArchived.
func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, address, token, password, is_archived, created_at, updated_at
		FROM accounts
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccountFromRows(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// SetArchived flips the archived flag for an account.
func (r *AccountRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET is_archived = ?, updated_at = ? WHERE id = ?
	`, boolToInt(archived), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return requireRow(result)
}

// UpdateToken replaces the stored bearer token for an account.
func (r *AccountRepository) UpdateToken(ctx context.Context, id, token string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET token = ?, updated_at = ? WHERE id = ?
	`, token, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}
	return requireRow(result)
}

// Delete removes an account row.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	account, err := scanAccountFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func scanAccountFromRows(rows *sql.Rows) (*models.Account, error) {
	return scanAccountFrom(rows)
}

func scanAccountFrom(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var isArchived int
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&account.ID,
		&account.Address,
		&account.Token,
		&account.Password,
		&isArchived,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.IsArchived = isArchived != 0

	createdParsed, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	updatedParsed, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	account.CreatedAt = createdParsed
	account.UpdatedAt = updatedParsed

	return &account, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
