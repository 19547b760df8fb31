package storage

import (
	"encoding/json"
	"time"

	"github.com/campus-life-events/server/internal/auth"
	"github.com/google/uuid"
)

// Account is an identity record. PasswordHash is nil until the invitation is
// completed; while pending, SetupToken is set and unexpired. The two states
// are mutually exclusive and the transition happens exactly once.
type Account struct {
	ID                  int64            `json:"id"`
	Type                auth.AccountType `json:"account_type"`
	OrganizerID         *int64           `json:"organizer_id,omitempty"`
	DisplayName         string           `json:"display_name"`
	Email               *string          `json:"email,omitempty"`
	PasswordHash        *string          `json:"-"`
	SetupToken          *string          `json:"-"`
	SetupTokenExpiresAt *time.Time       `json:"-"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Initialized reports whether the account has completed setup.
func (a Account) Initialized() bool {
	return a.PasswordHash != nil
}

// Session is an ephemeral proof of authentication. The ID doubles as the
// cookie value. Fixed-window expiry, no sliding renewal.
type Session struct {
	ID        uuid.UUID
	AccountID int64
	ExpiresAt time.Time
}

// PasswordResetToken is a single-use credential-recovery grant. At most one
// unused, unexpired token exists per account.
type PasswordResetToken struct {
	ID        int64
	AccountID int64
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

type Organizer struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	DescriptionDE *string   `json:"description_de,omitempty"`
	DescriptionEN *string   `json:"description_en,omitempty"`
	WebsiteURL    *string   `json:"website_url,omitempty"`
	InstagramURL  *string   `json:"instagram_url,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Newsletter    bool      `json:"newsletter"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrganizerWithInvite is the admin listing row: organizer joined with its
// account's invite state.
type OrganizerWithInvite struct {
	OrganizerID         int64      `json:"organizer_id"`
	OrganizerName       string     `json:"organizer_name"`
	AccountEmail        *string    `json:"account_email,omitempty"`
	Initialized         bool       `json:"initialized"`
	SetupToken          *string    `json:"setup_token,omitempty"`
	SetupTokenExpiresAt *time.Time `json:"setup_token_expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type Event struct {
	ID                int64      `json:"id"`
	OrganizerID       int64      `json:"organizer_id"`
	TitleDE           string     `json:"title_de"`
	TitleEN           string     `json:"title_en"`
	DescriptionDE     *string    `json:"description_de,omitempty"`
	DescriptionEN     *string    `json:"description_en,omitempty"`
	StartDateTime     time.Time  `json:"start_date_time"`
	EndDateTime       *time.Time `json:"end_date_time,omitempty"`
	EventURL          *string    `json:"event_url,omitempty"`
	Location          *string    `json:"location,omitempty"`
	PublishApp        bool       `json:"publish_app"`
	PublishNewsletter bool       `json:"publish_newsletter"`
	PublishInIcal     bool       `json:"publish_in_ical"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AuditType tags an audit log entry. Values match the Postgres enum.
type AuditType string

const (
	AuditCreate AuditType = "CREATE"
	AuditUpdate AuditType = "UPDATE"
	AuditDelete AuditType = "DELETE"
)

// AuditLogEntry is an immutable record of a mutation. OldData and NewData are
// schemaless JSON snapshots of the mutated row; they mirror whatever shape
// the record had at write time and are meant for inspection only.
type AuditLogEntry struct {
	ID          int64           `json:"id"`
	EventID     int64           `json:"event_id"`
	OrganizerID int64           `json:"organizer_id"`
	UserID      *int64          `json:"user_id,omitempty"`
	Type        AuditType       `json:"type"`
	At          time.Time       `json:"at"`
	OldData     json.RawMessage `json:"old_data,omitempty"`
	NewData     json.RawMessage `json:"new_data,omitempty"`
}
