// Package events implements event CRUD with ownership checks and an audit
// record for every mutation, committed in the same transaction.
package events

import (
	"context"
	"errors"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/audit"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/rs/zerolog"
)

type Service struct {
	repo     storage.Repository
	recorder *audit.Recorder
	logger   zerolog.Logger
}

func NewService(repo storage.Repository, recorder *audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		logger:   logger.With().Str("component", "events").Logger(),
	}
}

// List returns events matching the filter. Public.
func (s *Service) List(ctx context.Context, filter storage.ListEventsFilter) ([]storage.Event, error) {
	events, err := s.repo.Events().List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list events", err)
	}
	return events, nil
}

// Get returns one event. Public.
func (s *Service) Get(ctx context.Context, id int64) (storage.Event, error) {
	event, err := s.repo.Events().Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Event{}, apperr.NotFound("Event not found")
		}
		return storage.Event{}, apperr.Internal("get event", err)
	}
	return event, nil
}

// CreateParams is the service-level create request. OrganizerID is required
// for admins and optional for organizers, who may only name their own.
type CreateParams struct {
	OrganizerID *int64
	Event       storage.CreateEventParams
}

// Create inserts the event and its CREATE audit record in one transaction.
func (s *Service) Create(ctx context.Context, principal auth.Principal, params CreateParams) (storage.Event, error) {
	organizerID, err := s.resolveOrganizer(principal, params.OrganizerID)
	if err != nil {
		return storage.Event{}, err
	}
	params.Event.OrganizerID = organizerID

	var event storage.Event
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		event, err = tx.Events().Create(ctx, params.Event)
		if err != nil {
			return apperr.FromPostgres("create event", err)
		}
		actor := principal.AccountID
		return s.recorder.Record(ctx, tx, storage.AuditCreate, event, &actor, nil, &event)
	})
	if err != nil {
		return storage.Event{}, err
	}

	s.logger.Info().Int64("event_id", event.ID).Int64("organizer_id", organizerID).Msg("event created")
	return event, nil
}

// Update applies a partial update and records the before/after snapshots,
// all in one transaction.
func (s *Service) Update(ctx context.Context, principal auth.Principal, id int64, params storage.UpdateEventParams) (storage.Event, error) {
	if !params.HasUpdates() {
		return storage.Event{}, apperr.Validation("No fields supplied for update")
	}

	var updated storage.Event
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		existing, err := tx.Events().Get(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.NotFound("Event not found")
			}
			return apperr.Internal("get event", err)
		}
		if !principal.CanManageEvent(existing.OrganizerID) {
			return apperr.Unauthorized("cannot update another organizer's event")
		}

		updated, err = tx.Events().Update(ctx, id, params)
		if err != nil {
			return apperr.FromPostgres("update event", err)
		}
		actor := principal.AccountID
		return s.recorder.Record(ctx, tx, storage.AuditUpdate, updated, &actor, &existing, &updated)
	})
	if err != nil {
		return storage.Event{}, err
	}

	s.logger.Info().Int64("event_id", id).Msg("event updated")
	return updated, nil
}

// Delete removes the event and records its last snapshot in one transaction.
func (s *Service) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		existing, err := tx.Events().Get(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.NotFound("Event not found")
			}
			return apperr.Internal("get event", err)
		}
		if !principal.CanManageEvent(existing.OrganizerID) {
			return apperr.Unauthorized("cannot delete another organizer's event")
		}

		if err := tx.Events().Delete(ctx, id); err != nil {
			return apperr.Internal("delete event", err)
		}
		actor := principal.AccountID
		return s.recorder.Record(ctx, tx, storage.AuditDelete, existing, &actor, &existing, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("event_id", id).Msg("event deleted")
	return nil
}

// ListAuditLogs returns audit entries, scoped to the caller's organizer
// unless the caller is an admin.
func (s *Service) ListAuditLogs(ctx context.Context, principal auth.Principal, filter storage.ListAuditFilter) ([]storage.AuditLogEntry, error) {
	if !principal.IsAdmin() {
		if principal.OrganizerID == nil {
			return nil, apperr.Unauthorized("missing organizer context")
		}
		if filter.OrganizerID != nil && *filter.OrganizerID != *principal.OrganizerID {
			return nil, apperr.Unauthorized("cannot view other organizers' audit logs")
		}
		filter.OrganizerID = principal.OrganizerID
	}

	entries, err := s.repo.AuditLog().List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("list audit logs", err)
	}
	return entries, nil
}

func (s *Service) resolveOrganizer(principal auth.Principal, requested *int64) (int64, error) {
	if principal.IsAdmin() {
		if requested == nil {
			return 0, apperr.Validation("organizer_id is required")
		}
		return *requested, nil
	}
	if principal.OrganizerID == nil {
		return 0, apperr.Unauthorized("missing organizer context")
	}
	if requested != nil && *requested != *principal.OrganizerID {
		return 0, apperr.Unauthorized("cannot create events for another organizer")
	}
	return *principal.OrganizerID, nil
}
