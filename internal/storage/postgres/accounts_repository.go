package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, account_type, organizer_id, display_name, email, password_hash, setup_token, setup_token_expires_at, created_at, updated_at`

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (storage.Account, error) {
	row := r.q().QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row, "get account by id")
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (storage.Account, error) {
	row := r.q().QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row, "get account by email")
}

func (r *AccountRepository) GetBySetupToken(ctx context.Context, token string) (storage.Account, error) {
	row := r.q().QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE setup_token = $1`, token)
	return scanAccount(row, "get account by setup token")
}

func (r *AccountRepository) CreatePending(ctx context.Context, params storage.CreatePendingAccountParams) (storage.Account, error) {
	row := r.q().QueryRow(ctx, `
INSERT INTO accounts (account_type, organizer_id, display_name, email, setup_token, setup_token_expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+accountColumns,
		string(params.Type),
		params.OrganizerID,
		params.DisplayName,
		params.Email,
		params.SetupToken,
		params.SetupTokenExpiresAt,
	)
	return scanAccount(row, "create pending account")
}

// CompleteSetup is the single statement that moves an account from pending to
// initialized. The WHERE clause re-checks everything lookup validated, so two
// concurrent completions of one token cannot both match: the loser sees zero
// rows and gets ErrTokenConsumed.
func (r *AccountRepository) CompleteSetup(ctx context.Context, params storage.CompleteSetupParams) (storage.Account, error) {
	row := r.q().QueryRow(ctx, `
UPDATE accounts
   SET email = $1,
       password_hash = $2,
       setup_token = NULL,
       setup_token_expires_at = NULL,
       updated_at = NOW()
 WHERE setup_token = $3
   AND setup_token_expires_at > NOW()
   AND password_hash IS NULL
RETURNING `+accountColumns,
		params.Email,
		params.PasswordHash,
		params.SetupToken,
	)

	account, err := scanAccount(row, "complete account setup")
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Account{}, storage.ErrTokenConsumed
	}
	return account, err
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID int64, passwordHash string) error {
	tag, err := r.q().Exec(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, accountID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) RearmSetupToken(ctx context.Context, organizerID int64, token string, expiresAt time.Time) error {
	tag, err := r.q().Exec(ctx, `
UPDATE accounts
   SET setup_token = $1,
       setup_token_expires_at = $2,
       updated_at = NOW()
 WHERE organizer_id = $3
   AND account_type = 'ORGANIZER'`,
		token, expiresAt, organizerID)
	if err != nil {
		return fmt.Errorf("rearm setup token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) ListAdmins(ctx context.Context) ([]storage.Account, error) {
	rows, err := r.q().Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_type = 'ADMIN' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var accounts []storage.Account
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("list admins: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return accounts, nil
}

func scanAccount(row pgx.Row, op string) (storage.Account, error) {
	account, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Account{}, storage.ErrNotFound
		}
		return storage.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return account, nil
}

func scanAccountRow(row pgx.Row) (storage.Account, error) {
	var a storage.Account
	var accountType string
	if err := row.Scan(
		&a.ID,
		&accountType,
		&a.OrganizerID,
		&a.DisplayName,
		&a.Email,
		&a.PasswordHash,
		&a.SetupToken,
		&a.SetupTokenExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return storage.Account{}, err
	}
	a.Type = auth.AccountType(accountType)
	return a, nil
}
