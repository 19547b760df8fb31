// Package sessions issues, resolves, and revokes cookie-backed sessions.
// Session identifiers are random UUIDs stored server-side; the cookie carries
// nothing but the identifier. Expiry is a fixed window from creation, no
// sliding renewal.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/metrics"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Manager struct {
	repo   storage.Repository
	ttl    time.Duration
	logger zerolog.Logger
}

func NewManager(repo storage.Repository, ttl time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		repo:   repo,
		ttl:    ttl,
		logger: logger.With().Str("component", "sessions").Logger(),
	}
}

// TTL returns the configured session lifetime, which also drives the cookie
// Max-Age.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create issues a new session for the account. flow labels the metrics
// counter ("login" or "account_setup").
func (m *Manager) Create(ctx context.Context, accountID int64, flow string) (storage.Session, error) {
	session := storage.Session{
		ID:        uuid.New(),
		AccountID: accountID,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	if err := m.repo.Sessions().Create(ctx, session); err != nil {
		return storage.Session{}, apperr.Internal("create session", err)
	}
	metrics.SessionsIssuedTotal.WithLabelValues(flow).Inc()
	m.logger.Debug().Int64("account_id", accountID).Str("flow", flow).Msg("session created")
	return session, nil
}

// Resolve turns a raw cookie value into an authenticated principal. Malformed
// identifiers, unknown sessions, and expired sessions all fail Unauthorized.
func (m *Manager) Resolve(ctx context.Context, rawID string) (auth.Principal, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return auth.Principal{}, apperr.Unauthorized("invalid session format")
	}

	account, err := m.repo.Sessions().Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return auth.Principal{}, apperr.Unauthorized("invalid or expired session")
		}
		return auth.Principal{}, apperr.Internal("resolve session", err)
	}

	return auth.Principal{
		AccountID:   account.ID,
		Type:        account.Type,
		OrganizerID: account.OrganizerID,
	}, nil
}

// Revoke deletes the session for a raw cookie value. Unparseable or absent
// sessions are not errors; logout must always succeed.
func (m *Manager) Revoke(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil
	}
	if err := m.repo.Sessions().Delete(ctx, id); err != nil {
		return apperr.Internal("revoke session", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues("logout").Inc()
	return nil
}
