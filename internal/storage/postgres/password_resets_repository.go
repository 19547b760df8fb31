package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-life-events/server/internal/storage"
	"github.com/jackc/pgx/v5"
)

func (r *PasswordResetRepository) Replace(ctx context.Context, accountID int64, token string, expiresAt time.Time) error {
	q := r.q()
	if _, err := q.Exec(ctx, `DELETE FROM password_reset_tokens WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("clear reset tokens: %w", err)
	}
	if _, err := q.Exec(ctx,
		`INSERT INTO password_reset_tokens (account_id, token, expires_at) VALUES ($1, $2, $3)`,
		accountID, token, expiresAt); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

// Consume flips used_at in the same statement that checks the token is live,
// so a token can be consumed at most once even under concurrent confirms.
func (r *PasswordResetRepository) Consume(ctx context.Context, token string) (storage.PasswordResetToken, error) {
	row := r.q().QueryRow(ctx, `
UPDATE password_reset_tokens
   SET used_at = NOW()
 WHERE token = $1
   AND used_at IS NULL
   AND expires_at > NOW()
RETURNING id, account_id, token, expires_at, used_at, created_at`,
		token)

	var t storage.PasswordResetToken
	if err := row.Scan(&t.ID, &t.AccountID, &t.Token, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.PasswordResetToken{}, storage.ErrTokenConsumed
		}
		return storage.PasswordResetToken{}, fmt.Errorf("consume reset token: %w", err)
	}
	return t, nil
}
