package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus-life-events/server/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func (r *SessionRepository) Create(ctx context.Context, session storage.Session) error {
	_, err := r.q().Exec(ctx,
		`INSERT INTO sessions (id, account_id, expires_at) VALUES ($1, $2, $3)`,
		pgUUID(session.ID), session.AccountID, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Resolve(ctx context.Context, id uuid.UUID) (storage.Account, error) {
	row := r.q().QueryRow(ctx, `
SELECT a.id, a.account_type, a.organizer_id, a.display_name, a.email, a.password_hash, a.setup_token, a.setup_token_expires_at, a.created_at, a.updated_at
  FROM sessions s
  JOIN accounts a ON a.id = s.account_id
 WHERE s.id = $1 AND s.expires_at > NOW()`,
		pgUUID(id))

	account, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Account{}, storage.ErrNotFound
		}
		return storage.Account{}, fmt.Errorf("resolve session: %w", err)
	}
	return account, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM sessions WHERE id = $1`, pgUUID(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllForAccount(ctx context.Context, accountID int64) error {
	if _, err := r.q().Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("delete sessions for account: %w", err)
	}
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
