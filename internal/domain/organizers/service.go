// Package organizers manages organizer records and their linked accounts.
// Creating an organizer provisions a pending account with a setup token in
// the same transaction, so an organizer row never exists without its invite.
package organizers

import (
	"context"
	"errors"
	"time"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/domain/accounts"
	"github.com/campus-life-events/server/internal/email"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   storage.Repository
	email  *email.Service
	logger zerolog.Logger
}

func NewService(repo storage.Repository, emailSvc *email.Service, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		email:  emailSvc,
		logger: logger.With().Str("component", "organizers").Logger(),
	}
}

// List returns all organizers. Public.
func (s *Service) List(ctx context.Context) ([]storage.Organizer, error) {
	organizers, err := s.repo.Organizers().List(ctx)
	if err != nil {
		return nil, apperr.Internal("list organizers", err)
	}
	return organizers, nil
}

// Get returns one organizer. Public.
func (s *Service) Get(ctx context.Context, id int64) (storage.Organizer, error) {
	organizer, err := s.repo.Organizers().Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Organizer{}, apperr.NotFound("Organizer not found")
		}
		return storage.Organizer{}, apperr.Internal("get organizer", err)
	}
	return organizer, nil
}

// Create provisions an organizer with a linked pending account and returns
// the setup token. Admin only. The invite e-mail is best-effort; a delivery
// failure leaves the committed invite intact and the token is still returned
// to the caller for manual delivery.
func (s *Service) Create(ctx context.Context, principal auth.Principal, name, inviteEmail string) (storage.Organizer, string, error) {
	if !principal.IsAdmin() {
		return storage.Organizer{}, "", apperr.Unauthorized("insufficient permissions")
	}

	token, err := auth.NewToken()
	if err != nil {
		return storage.Organizer{}, "", apperr.Internal("generate setup token", err)
	}

	var organizer storage.Organizer
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		organizer, err = tx.Organizers().Create(ctx, name)
		if err != nil {
			return err
		}
		_, err = tx.Accounts().CreatePending(ctx, storage.CreatePendingAccountParams{
			Type:                auth.AccountTypeOrganizer,
			OrganizerID:         &organizer.ID,
			DisplayName:         organizer.Name,
			Email:               &inviteEmail,
			SetupToken:          token,
			SetupTokenExpiresAt: time.Now().Add(accounts.SetupTokenValidity),
		})
		return err
	})
	if err != nil {
		return storage.Organizer{}, "", apperr.FromPostgres("create organizer", err)
	}

	if err := s.email.SendOrganizerInvite(ctx, inviteEmail, name, token, accounts.SetupTokenValidity); err != nil {
		s.logger.Error().Err(err).Int64("organizer_id", organizer.ID).Msg("failed to send organizer invite email")
	}

	s.logger.Info().Int64("organizer_id", organizer.ID).Str("name", name).Msg("organizer created")
	return organizer, token, nil
}

// Update applies a partial update. Self or admin.
func (s *Service) Update(ctx context.Context, principal auth.Principal, id int64, params storage.UpdateOrganizerParams) (storage.Organizer, error) {
	if !principal.CanManageOrganizer(id) {
		return storage.Organizer{}, apperr.Unauthorized("cannot update another organizer")
	}
	if !params.HasUpdates() {
		return storage.Organizer{}, apperr.Validation("No fields supplied for update")
	}

	organizer, err := s.repo.Organizers().Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Organizer{}, apperr.NotFound("Organizer not found")
		}
		return storage.Organizer{}, apperr.FromPostgres("update organizer", err)
	}
	return organizer, nil
}

// Delete removes the organizer; its account, events, and sessions go with it
// via cascade. Self or admin.
func (s *Service) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	if !principal.CanManageOrganizer(id) {
		return apperr.Unauthorized("cannot delete another organizer")
	}
	if err := s.repo.Organizers().Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("Organizer not found")
		}
		return apperr.Internal("delete organizer", err)
	}
	s.logger.Info().Int64("organizer_id", id).Msg("organizer deleted")
	return nil
}

// ListWithInviteStatus returns all organizers joined with their account's
// invite state. Admin only.
func (s *Service) ListWithInviteStatus(ctx context.Context, principal auth.Principal) ([]storage.OrganizerWithInvite, error) {
	if !principal.IsAdmin() {
		return nil, apperr.Unauthorized("insufficient permissions")
	}
	rows, err := s.repo.Organizers().ListWithInviteStatus(ctx)
	if err != nil {
		return nil, apperr.Internal("list organizers with invite status", err)
	}
	return rows, nil
}

// RegenerateSetupToken re-arms the organizer account's setup token with a
// fresh 7-day window and returns the new token. Self or admin.
func (s *Service) RegenerateSetupToken(ctx context.Context, principal auth.Principal, organizerID int64) (string, error) {
	if !principal.CanManageOrganizer(organizerID) {
		return "", apperr.Unauthorized("cannot generate token for another organizer")
	}

	token, err := auth.NewToken()
	if err != nil {
		return "", apperr.Internal("generate setup token", err)
	}

	err = s.repo.Accounts().RearmSetupToken(ctx, organizerID, token, time.Now().Add(accounts.SetupTokenValidity))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperr.NotFound("Organizer account not found")
		}
		return "", apperr.Internal("rearm setup token", err)
	}

	s.logger.Info().Int64("organizer_id", organizerID).Msg("setup token regenerated")
	return token, nil
}
