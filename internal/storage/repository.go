package storage

import (
	"context"
	"errors"
	"time"

	"github.com/campus-life-events/server/internal/auth"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTokenConsumed is returned by conditional token writes that matched
	// zero rows: the token was already used, expired, or never existed.
	ErrTokenConsumed = errors.New("token already consumed or expired")
)

// Repository groups data access by domain. WithTx runs fn against a
// transaction-scoped Repository; every statement issued through it joins the
// same transaction, which commits when fn returns nil.
type Repository interface {
	Accounts() AccountRepository
	Sessions() SessionRepository
	PasswordResets() PasswordResetRepository
	Organizers() OrganizerRepository
	Events() EventRepository
	AuditLog() AuditLogRepository

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

type CreatePendingAccountParams struct {
	Type                auth.AccountType
	OrganizerID         *int64
	DisplayName         string
	Email               *string
	SetupToken          string
	SetupTokenExpiresAt time.Time
}

type CompleteSetupParams struct {
	SetupToken   string
	Email        string
	PasswordHash string
}

type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetBySetupToken(ctx context.Context, token string) (Account, error)
	CreatePending(ctx context.Context, params CreatePendingAccountParams) (Account, error)
	// CompleteSetup atomically sets email and password hash and clears the
	// setup token in a single conditional statement. Returns
	// ErrTokenConsumed when the token no longer matches a pending,
	// unexpired account (concurrent completion, expiry, or bad token).
	CompleteSetup(ctx context.Context, params CompleteSetupParams) (Account, error)
	UpdatePassword(ctx context.Context, accountID int64, passwordHash string) error
	// RearmSetupToken issues a fresh setup token for the organizer's
	// account. Returns ErrNotFound when no such account exists.
	RearmSetupToken(ctx context.Context, organizerID int64, token string, expiresAt time.Time) error
	ListAdmins(ctx context.Context) ([]Account, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session Session) error
	// Resolve returns the owning account for an unexpired session.
	// ErrNotFound covers both missing and expired sessions.
	Resolve(ctx context.Context, id uuid.UUID) (Account, error)
	// Delete is idempotent; deleting an absent session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForAccount(ctx context.Context, accountID int64) error
}

type PasswordResetRepository interface {
	// Replace deletes any outstanding tokens for the account and inserts a
	// new one, keeping at most one live token per account.
	Replace(ctx context.Context, accountID int64, token string, expiresAt time.Time) error
	// Consume marks an unused, unexpired token as used in one conditional
	// statement and returns it. ErrTokenConsumed when no live token matched.
	Consume(ctx context.Context, token string) (PasswordResetToken, error)
}

type UpdateOrganizerParams struct {
	Name          *string
	DescriptionDE *string
	DescriptionEN *string
	WebsiteURL    *string
	InstagramURL  *string
	Location      *string
	Newsletter    *bool
}

func (p UpdateOrganizerParams) HasUpdates() bool {
	return p.Name != nil || p.DescriptionDE != nil || p.DescriptionEN != nil ||
		p.WebsiteURL != nil || p.InstagramURL != nil || p.Location != nil || p.Newsletter != nil
}

type OrganizerRepository interface {
	List(ctx context.Context) ([]Organizer, error)
	Get(ctx context.Context, id int64) (Organizer, error)
	Create(ctx context.Context, name string) (Organizer, error)
	Update(ctx context.Context, id int64, params UpdateOrganizerParams) (Organizer, error)
	Delete(ctx context.Context, id int64) error
	ListWithInviteStatus(ctx context.Context) ([]OrganizerWithInvite, error)
	NewsletterEnabled(ctx context.Context, id int64) (bool, error)
}

type ListEventsFilter struct {
	OrganizerID  *int64
	UpcomingOnly bool
	Limit        *int32
	Offset       *int32
}

type CreateEventParams struct {
	OrganizerID       int64
	TitleDE           string
	TitleEN           string
	DescriptionDE     *string
	DescriptionEN     *string
	StartDateTime     time.Time
	EndDateTime       *time.Time
	EventURL          *string
	Location          *string
	PublishApp        bool
	PublishNewsletter bool
	PublishInIcal     bool
}

type UpdateEventParams struct {
	TitleDE           *string
	TitleEN           *string
	DescriptionDE     *string
	DescriptionEN     *string
	StartDateTime     *time.Time
	EndDateTime       *time.Time
	EventURL          *string
	Location          *string
	PublishApp        *bool
	PublishNewsletter *bool
	PublishInIcal     *bool
}

func (p UpdateEventParams) HasUpdates() bool {
	return p.TitleDE != nil || p.TitleEN != nil || p.DescriptionDE != nil ||
		p.DescriptionEN != nil || p.StartDateTime != nil || p.EndDateTime != nil ||
		p.EventURL != nil || p.Location != nil || p.PublishApp != nil ||
		p.PublishNewsletter != nil || p.PublishInIcal != nil
}

type EventRepository interface {
	List(ctx context.Context, filter ListEventsFilter) ([]Event, error)
	Get(ctx context.Context, id int64) (Event, error)
	Create(ctx context.Context, params CreateEventParams) (Event, error)
	Update(ctx context.Context, id int64, params UpdateEventParams) (Event, error)
	Delete(ctx context.Context, id int64) error
}

type ListAuditFilter struct {
	EventID     *int64
	OrganizerID *int64
	Limit       *int32
	Offset      *int32
}

type AuditLogRepository interface {
	// Insert appends one entry. Callers are responsible for issuing it
	// through the same WithTx scope as the mutation it records.
	Insert(ctx context.Context, entry AuditLogEntry) error
	List(ctx context.Context, filter ListAuditFilter) ([]AuditLogEntry, error)
}
