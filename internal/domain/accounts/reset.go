package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/metrics"
	"github.com/campus-life-events/server/internal/storage"
)

// ResetTokenValidity is the window during which a password reset token can be
// exchanged. Short on purpose: the token travels by e-mail.
const ResetTokenValidity = 10 * time.Minute

// RequestPasswordReset issues a reset token for an initialized account and
// mails it. The outcome is identical whether or not the e-mail matches an
// account; this endpoint must not reveal account existence.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	account, err := s.repo.Accounts().GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Debug().Msg("password reset requested for unknown e-mail")
			metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
			return nil
		}
		return apperr.Internal("look up account", err)
	}
	if account.PasswordHash == nil {
		s.logger.Debug().Int64("account_id", account.ID).Msg("password reset requested for uninitialized account")
		metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
		return nil
	}

	token, err := auth.NewToken()
	if err != nil {
		return apperr.Internal("generate reset token", err)
	}

	if err := s.repo.PasswordResets().Replace(ctx, account.ID, token, time.Now().Add(ResetTokenValidity)); err != nil {
		return apperr.Internal("store reset token", err)
	}

	if err := s.email.SendPasswordReset(ctx, emailAddr, token, ResetTokenValidity); err != nil {
		s.logger.Error().Err(err).Int64("account_id", account.ID).Msg("failed to send password reset email")
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	s.logger.Info().Int64("account_id", account.ID).Msg("password reset token issued")
	return nil
}

// ConfirmPasswordReset exchanges a reset token for a new password. Token
// consumption, the hash update, and session revocation commit atomically; a
// policy rejection rolls the consumption back, so the token survives for a
// second attempt with a stronger password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	var accountID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		reset, err := tx.PasswordResets().Consume(ctx, token)
		if err != nil {
			if errors.Is(err, storage.ErrTokenConsumed) {
				return apperr.Validation("Invalid or expired reset token")
			}
			return apperr.Internal("consume reset token", err)
		}
		accountID = reset.AccountID

		if err := auth.ValidatePassword(newPassword, s.policy); err != nil {
			return err
		}

		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return apperr.Internal("hash password", err)
		}

		if err := tx.Accounts().UpdatePassword(ctx, reset.AccountID, hash); err != nil {
			return apperr.Internal("update password", err)
		}
		return tx.Sessions().DeleteAllForAccount(ctx, reset.AccountID)
	})
	if err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("rejected").Inc()
		return err
	}

	metrics.SessionsRevokedTotal.WithLabelValues("password_reset").Inc()
	metrics.PasswordResetsTotal.WithLabelValues("confirmed").Inc()
	s.logger.Info().Int64("account_id", accountID).Msg("password reset completed, sessions rotated")
	return nil
}
