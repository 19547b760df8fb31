// Package accounts implements the identity flows: login, invitation-based
// account setup, password change, and password reset.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/domain/sessions"
	"github.com/campus-life-events/server/internal/email"
	"github.com/campus-life-events/server/internal/metrics"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/rs/zerolog"
)

// SetupTokenValidity is how long an invitation's setup token stays
// exchangeable.
const SetupTokenValidity = 7 * 24 * time.Hour

type Service struct {
	repo     storage.Repository
	sessions *sessions.Manager
	email    *email.Service
	policy   auth.Policy
	logger   zerolog.Logger
}

func NewService(repo storage.Repository, sessionMgr *sessions.Manager, emailSvc *email.Service, policy auth.Policy, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		sessions: sessionMgr,
		email:    emailSvc,
		policy:   policy,
		logger:   logger.With().Str("component", "accounts").Logger(),
	}
}

// AuthenticatedUser is what the auth endpoints return about the current
// account.
type AuthenticatedUser struct {
	AccountID           int64            `json:"account_id"`
	DisplayName         string           `json:"display_name"`
	AccountType         auth.AccountType `json:"account_type"`
	OrganizerID         *int64           `json:"organizer_id,omitempty"`
	CanAccessNewsletter bool             `json:"can_access_newsletter"`
}

// SetupTokenInfo is the pending-account summary shown on the registration
// page before the user picks credentials.
type SetupTokenInfo struct {
	AccountName string           `json:"account_name"`
	AccountType auth.AccountType `json:"account_type"`
}

// Login checks credentials and issues a session. Unknown e-mail, uninitialized
// account, and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (storage.Session, AuthenticatedUser, error) {
	account, err := s.repo.Accounts().GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return storage.Session{}, AuthenticatedUser{}, apperr.Unauthorized("invalid e-mail or password")
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return storage.Session{}, AuthenticatedUser{}, apperr.Internal("look up account", err)
	}

	if account.PasswordHash == nil {
		s.logger.Warn().Str("email", emailAddr).Msg("login attempt against uninitialized account")
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return storage.Session{}, AuthenticatedUser{}, apperr.Unauthorized("invalid e-mail or password")
	}

	if err := auth.VerifyPassword(password, *account.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn().Str("email", emailAddr).Msg("failed login attempt")
		}
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return storage.Session{}, AuthenticatedUser{}, apperr.Unauthorized("invalid e-mail or password")
	}

	session, err := s.sessions.Create(ctx, account.ID, "login")
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return storage.Session{}, AuthenticatedUser{}, err
	}

	user, err := s.userInfo(ctx, account)
	if err != nil {
		return storage.Session{}, AuthenticatedUser{}, err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info().Int64("account_id", account.ID).Str("display_name", account.DisplayName).Msg("successful login")
	return session, user, nil
}

// Logout revokes the session behind a raw cookie value.
func (s *Service) Logout(ctx context.Context, rawSessionID string) error {
	return s.sessions.Revoke(ctx, rawSessionID)
}

// CurrentUser returns the profile for an already-resolved principal.
func (s *Service) CurrentUser(ctx context.Context, principal auth.Principal) (AuthenticatedUser, error) {
	account, err := s.repo.Accounts().GetByID(ctx, principal.AccountID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return AuthenticatedUser{}, apperr.Unauthorized("invalid or expired session")
		}
		return AuthenticatedUser{}, apperr.Internal("look up account", err)
	}
	return s.userInfo(ctx, account)
}

// NormalizeSetupToken undoes the '+' → ' ' mangling that URL decoding applies
// to tokens pasted into query strings.
func NormalizeSetupToken(token string) string {
	return strings.ReplaceAll(token, " ", "+")
}

// LookupSetupToken returns the pending account behind a setup token so the
// registration page can greet the invitee. The error messages deliberately
// distinguish expired from invalid so an invitee knows to ask for a new
// invitation.
func (s *Service) LookupSetupToken(ctx context.Context, token string) (SetupTokenInfo, error) {
	account, err := s.pendingAccount(ctx, token)
	if err != nil {
		return SetupTokenInfo{}, err
	}
	return SetupTokenInfo{
		AccountName: account.DisplayName,
		AccountType: account.Type,
	}, nil
}

// InitAccount exchanges a setup token for credentials and a first session.
// The token-to-initialized transition is a single conditional write, so of
// two concurrent completions exactly one wins.
func (s *Service) InitAccount(ctx context.Context, token, emailAddr, password string) (storage.Session, AuthenticatedUser, error) {
	if _, err := s.pendingAccount(ctx, token); err != nil {
		return storage.Session{}, AuthenticatedUser{}, err
	}

	if err := auth.ValidatePassword(password, s.policy); err != nil {
		return storage.Session{}, AuthenticatedUser{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return storage.Session{}, AuthenticatedUser{}, apperr.Internal("hash password", err)
	}

	account, err := s.repo.Accounts().CompleteSetup(ctx, storage.CompleteSetupParams{
		SetupToken:   NormalizeSetupToken(token),
		Email:        emailAddr,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrTokenConsumed) {
			return storage.Session{}, AuthenticatedUser{}, apperr.Validation("account already initialized")
		}
		return storage.Session{}, AuthenticatedUser{}, apperr.FromPostgres("complete account setup", err)
	}

	session, err := s.sessions.Create(ctx, account.ID, "account_setup")
	if err != nil {
		return storage.Session{}, AuthenticatedUser{}, err
	}

	if err := s.email.SendWelcome(ctx, emailAddr, account.DisplayName); err != nil {
		s.logger.Error().Err(err).Str("email", emailAddr).Msg("failed to send welcome email")
	}

	user, err := s.userInfo(ctx, account)
	if err != nil {
		return storage.Session{}, AuthenticatedUser{}, err
	}

	s.logger.Info().Int64("account_id", account.ID).Msg("account initialized")
	return session, user, nil
}

// ChangePassword verifies the current password, then swaps the hash and
// revokes every session for the account in one transaction. The caller must
// log in again.
func (s *Service) ChangePassword(ctx context.Context, principal auth.Principal, currentPassword, newPassword string) error {
	account, err := s.repo.Accounts().GetByID(ctx, principal.AccountID)
	if err != nil {
		return apperr.Internal("look up account", err)
	}

	if account.PasswordHash == nil {
		return apperr.Validation("account not initialized")
	}

	if err := auth.VerifyPassword(currentPassword, *account.PasswordHash); err != nil {
		return apperr.Unauthorized("invalid current password")
	}

	if err := auth.ValidatePassword(newPassword, s.policy); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("hash password", err)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if err := tx.Accounts().UpdatePassword(ctx, account.ID, hash); err != nil {
			return err
		}
		return tx.Sessions().DeleteAllForAccount(ctx, account.ID)
	})
	if err != nil {
		return apperr.Internal("change password", err)
	}

	metrics.SessionsRevokedTotal.WithLabelValues("password_change").Inc()
	s.logger.Info().Int64("account_id", account.ID).Msg("password changed, sessions rotated")
	return nil
}

// InviteAdmin creates a pending administrator account and returns its setup
// token. Admin only.
func (s *Service) InviteAdmin(ctx context.Context, principal auth.Principal, displayName, emailAddr string) (string, error) {
	if !principal.IsAdmin() {
		return "", apperr.Unauthorized("insufficient permissions")
	}

	token, err := auth.NewToken()
	if err != nil {
		return "", apperr.Internal("generate setup token", err)
	}

	_, err = s.repo.Accounts().CreatePending(ctx, storage.CreatePendingAccountParams{
		Type:                auth.AccountTypeAdmin,
		DisplayName:         displayName,
		Email:               &emailAddr,
		SetupToken:          token,
		SetupTokenExpiresAt: time.Now().Add(SetupTokenValidity),
	})
	if err != nil {
		return "", apperr.FromPostgres("create pending admin account", err)
	}

	if err := s.email.SendAdminInvite(ctx, emailAddr, displayName, token, SetupTokenValidity); err != nil {
		s.logger.Error().Err(err).Str("email", emailAddr).Msg("failed to send admin invite email")
	}

	s.logger.Info().Str("display_name", displayName).Msg("admin invited")
	return token, nil
}

// ListAdmins returns every administrator account, pending or initialized.
// Admin only.
func (s *Service) ListAdmins(ctx context.Context, principal auth.Principal) ([]storage.Account, error) {
	if !principal.IsAdmin() {
		return nil, apperr.Unauthorized("insufficient permissions")
	}
	admins, err := s.repo.Accounts().ListAdmins(ctx)
	if err != nil {
		return nil, apperr.Internal("list admins", err)
	}
	return admins, nil
}

func (s *Service) pendingAccount(ctx context.Context, token string) (storage.Account, error) {
	account, err := s.repo.Accounts().GetBySetupToken(ctx, NormalizeSetupToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Account{}, apperr.Validation("invalid setup token")
		}
		return storage.Account{}, apperr.Internal("look up setup token", err)
	}
	if account.SetupTokenExpiresAt == nil || !account.SetupTokenExpiresAt.After(time.Now()) {
		return storage.Account{}, apperr.Validation("setup token expired")
	}
	if account.Initialized() {
		return storage.Account{}, apperr.Validation("account already initialized")
	}
	return account, nil
}

// userInfo fills in the newsletter-access flag: admins always have it,
// organizers per their organizer record.
func (s *Service) userInfo(ctx context.Context, account storage.Account) (AuthenticatedUser, error) {
	user := AuthenticatedUser{
		AccountID:   account.ID,
		DisplayName: account.DisplayName,
		AccountType: account.Type,
		OrganizerID: account.OrganizerID,
	}
	if account.Type == auth.AccountTypeAdmin {
		user.CanAccessNewsletter = true
		return user, nil
	}
	if account.OrganizerID == nil {
		return user, nil
	}
	enabled, err := s.repo.Organizers().NewsletterEnabled(ctx, *account.OrganizerID)
	if err != nil {
		return AuthenticatedUser{}, apperr.Internal("check newsletter access", err)
	}
	user.CanAccessNewsletter = enabled
	return user, nil
}
