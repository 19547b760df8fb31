// Package storagetest provides an in-memory storage.Repository for unit
// tests. It mirrors the conditional-write semantics of the Postgres
// implementation (zero-rows token consumption, expiry checks) and rolls the
// whole state back when a WithTx callback fails.
package storagetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/google/uuid"
)

type state struct {
	nextAccountID   int64
	nextOrganizerID int64
	nextEventID     int64
	nextResetID     int64
	nextAuditID     int64

	accounts   map[int64]storage.Account
	sessions   map[uuid.UUID]storage.Session
	resets     map[int64]storage.PasswordResetToken
	organizers map[int64]storage.Organizer
	events     map[int64]storage.Event
	audit      []storage.AuditLogEntry
}

func newState() *state {
	return &state{
		nextAccountID:   1,
		nextOrganizerID: 1,
		nextEventID:     1,
		nextResetID:     1,
		nextAuditID:     1,
		accounts:        map[int64]storage.Account{},
		sessions:        map[uuid.UUID]storage.Session{},
		resets:          map[int64]storage.PasswordResetToken{},
		organizers:      map[int64]storage.Organizer{},
		events:          map[int64]storage.Event{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextAccountID = s.nextAccountID
	c.nextOrganizerID = s.nextOrganizerID
	c.nextEventID = s.nextEventID
	c.nextResetID = s.nextResetID
	c.nextAuditID = s.nextAuditID
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.resets {
		c.resets[k] = v
	}
	for k, v := range s.organizers {
		c.organizers[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	c.audit = append(c.audit, s.audit...)
	return c
}

// Repo is an in-memory storage.Repository.
type Repo struct {
	mu    sync.Mutex
	state *state
	txMu  sync.Mutex
}

func NewRepo() *Repo {
	return &Repo{state: newState()}
}

func (r *Repo) Accounts() storage.AccountRepository             { return accountRepo{r} }
func (r *Repo) Sessions() storage.SessionRepository             { return sessionRepo{r} }
func (r *Repo) PasswordResets() storage.PasswordResetRepository { return resetRepo{r} }
func (r *Repo) Organizers() storage.OrganizerRepository         { return organizerRepo{r} }
func (r *Repo) Events() storage.EventRepository                 { return eventRepo{r} }
func (r *Repo) AuditLog() storage.AuditLogRepository            { return auditRepo{r} }

// WithTx snapshots the state and restores it when fn returns an error.
// Top-level transactions are serialized; fn receives a tx-scoped Repository
// whose own WithTx reuses the enclosing transaction.
func (r *Repo) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := r.state.clone()
	r.mu.Unlock()

	err := fn(ctx, txRepo{r})
	if err != nil {
		r.mu.Lock()
		r.state = snapshot
		r.mu.Unlock()
	}
	return err
}

// txRepo is the Repository handed to WithTx callbacks. Its WithTx runs fn in
// the enclosing transaction instead of opening another one.
type txRepo struct {
	*Repo
}

func (t txRepo) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	return fn(ctx, t)
}

// SeedAccount inserts an account row directly, assigning an ID.
func (r *Repo) SeedAccount(account storage.Account) storage.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	account.ID = r.state.nextAccountID
	r.state.nextAccountID++
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
		account.UpdatedAt = account.CreatedAt
	}
	r.state.accounts[account.ID] = account
	return account
}

// SeedOrganizer inserts an organizer row directly, assigning an ID.
func (r *Repo) SeedOrganizer(organizer storage.Organizer) storage.Organizer {
	r.mu.Lock()
	defer r.mu.Unlock()
	organizer.ID = r.state.nextOrganizerID
	r.state.nextOrganizerID++
	if organizer.CreatedAt.IsZero() {
		organizer.CreatedAt = time.Now()
		organizer.UpdatedAt = organizer.CreatedAt
	}
	r.state.organizers[organizer.ID] = organizer
	return organizer
}

// SeedEvent inserts an event row directly, assigning an ID.
func (r *Repo) SeedEvent(event storage.Event) storage.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.ID = r.state.nextEventID
	r.state.nextEventID++
	r.state.events[event.ID] = event
	return event
}

// Sessions returns all stored sessions, for assertions.
func (r *Repo) AllSessions() []storage.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storage.Session, 0, len(r.state.sessions))
	for _, s := range r.state.sessions {
		out = append(out, s)
	}
	return out
}

// AuditEntries returns all audit rows, for assertions.
func (r *Repo) AuditEntries() []storage.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.AuditLogEntry(nil), r.state.audit...)
}

// ResetTokens returns all reset token rows, for assertions.
func (r *Repo) ResetTokens() []storage.PasswordResetToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]storage.PasswordResetToken, 0, len(r.state.resets))
	for _, t := range r.state.resets {
		out = append(out, t)
	}
	return out
}

type accountRepo struct{ r *Repo }

func (a accountRepo) GetByID(_ context.Context, id int64) (storage.Account, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	account, ok := a.r.state.accounts[id]
	if !ok {
		return storage.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (a accountRepo) GetByEmail(_ context.Context, email string) (storage.Account, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	for _, account := range a.r.state.accounts {
		if account.Email != nil && *account.Email == email {
			return account, nil
		}
	}
	return storage.Account{}, storage.ErrNotFound
}

func (a accountRepo) GetBySetupToken(_ context.Context, token string) (storage.Account, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	for _, account := range a.r.state.accounts {
		if account.SetupToken != nil && *account.SetupToken == token {
			return account, nil
		}
	}
	return storage.Account{}, storage.ErrNotFound
}

func (a accountRepo) CreatePending(_ context.Context, params storage.CreatePendingAccountParams) (storage.Account, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	now := time.Now()
	token := params.SetupToken
	expires := params.SetupTokenExpiresAt
	account := storage.Account{
		ID:                  a.r.state.nextAccountID,
		Type:                params.Type,
		OrganizerID:         params.OrganizerID,
		DisplayName:         params.DisplayName,
		Email:               params.Email,
		SetupToken:          &token,
		SetupTokenExpiresAt: &expires,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	a.r.state.nextAccountID++
	a.r.state.accounts[account.ID] = account
	return account, nil
}

func (a accountRepo) CompleteSetup(_ context.Context, params storage.CompleteSetupParams) (storage.Account, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	for id, account := range a.r.state.accounts {
		if account.SetupToken == nil || *account.SetupToken != params.SetupToken {
			continue
		}
		if account.SetupTokenExpiresAt == nil || !account.SetupTokenExpiresAt.After(time.Now()) {
			return storage.Account{}, storage.ErrTokenConsumed
		}
		if account.PasswordHash != nil {
			return storage.Account{}, storage.ErrTokenConsumed
		}
		email := params.Email
		hash := params.PasswordHash
		account.Email = &email
		account.PasswordHash = &hash
		account.SetupToken = nil
		account.SetupTokenExpiresAt = nil
		account.UpdatedAt = time.Now()
		a.r.state.accounts[id] = account
		return account, nil
	}
	return storage.Account{}, storage.ErrTokenConsumed
}

func (a accountRepo) UpdatePassword(_ context.Context, accountID int64, passwordHash string) error {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	account, ok := a.r.state.accounts[accountID]
	if !ok {
		return storage.ErrNotFound
	}
	account.PasswordHash = &passwordHash
	account.UpdatedAt = time.Now()
	a.r.state.accounts[accountID] = account
	return nil
}

func (a accountRepo) RearmSetupToken(_ context.Context, organizerID int64, token string, expiresAt time.Time) error {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	for id, account := range a.r.state.accounts {
		if account.Type == auth.AccountTypeOrganizer && account.OrganizerID != nil && *account.OrganizerID == organizerID {
			t := token
			e := expiresAt
			account.SetupToken = &t
			account.SetupTokenExpiresAt = &e
			account.UpdatedAt = time.Now()
			a.r.state.accounts[id] = account
			return nil
		}
	}
	return storage.ErrNotFound
}

func (a accountRepo) ListAdmins(_ context.Context) ([]storage.Account, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	var admins []storage.Account
	for _, account := range a.r.state.accounts {
		if account.Type == auth.AccountTypeAdmin {
			admins = append(admins, account)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.After(admins[j].CreatedAt) })
	return admins, nil
}

type sessionRepo struct{ r *Repo }

func (s sessionRepo) Create(_ context.Context, session storage.Session) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.state.sessions[session.ID] = session
	return nil
}

func (s sessionRepo) Resolve(_ context.Context, id uuid.UUID) (storage.Account, error) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	session, ok := s.r.state.sessions[id]
	if !ok || !session.ExpiresAt.After(time.Now()) {
		return storage.Account{}, storage.ErrNotFound
	}
	account, ok := s.r.state.accounts[session.AccountID]
	if !ok {
		return storage.Account{}, storage.ErrNotFound
	}
	return account, nil
}

func (s sessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	delete(s.r.state.sessions, id)
	return nil
}

func (s sessionRepo) DeleteAllForAccount(_ context.Context, accountID int64) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	for id, session := range s.r.state.sessions {
		if session.AccountID == accountID {
			delete(s.r.state.sessions, id)
		}
	}
	return nil
}

type resetRepo struct{ r *Repo }

func (p resetRepo) Replace(_ context.Context, accountID int64, token string, expiresAt time.Time) error {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	for id, t := range p.r.state.resets {
		if t.AccountID == accountID {
			delete(p.r.state.resets, id)
		}
	}
	t := storage.PasswordResetToken{
		ID:        p.r.state.nextResetID,
		AccountID: accountID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	p.r.state.nextResetID++
	p.r.state.resets[t.ID] = t
	return nil
}

func (p resetRepo) Consume(_ context.Context, token string) (storage.PasswordResetToken, error) {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	for id, t := range p.r.state.resets {
		if t.Token != token {
			continue
		}
		if t.UsedAt != nil || !t.ExpiresAt.After(time.Now()) {
			return storage.PasswordResetToken{}, storage.ErrTokenConsumed
		}
		now := time.Now()
		t.UsedAt = &now
		p.r.state.resets[id] = t
		return t, nil
	}
	return storage.PasswordResetToken{}, storage.ErrTokenConsumed
}

type organizerRepo struct{ r *Repo }

func (o organizerRepo) List(_ context.Context) ([]storage.Organizer, error) {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	var out []storage.Organizer
	for _, org := range o.r.state.organizers {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (o organizerRepo) Get(_ context.Context, id int64) (storage.Organizer, error) {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	org, ok := o.r.state.organizers[id]
	if !ok {
		return storage.Organizer{}, storage.ErrNotFound
	}
	return org, nil
}

func (o organizerRepo) Create(_ context.Context, name string) (storage.Organizer, error) {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	now := time.Now()
	org := storage.Organizer{
		ID:        o.r.state.nextOrganizerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.r.state.nextOrganizerID++
	o.r.state.organizers[org.ID] = org
	return org, nil
}

func (o organizerRepo) Update(_ context.Context, id int64, params storage.UpdateOrganizerParams) (storage.Organizer, error) {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	org, ok := o.r.state.organizers[id]
	if !ok {
		return storage.Organizer{}, storage.ErrNotFound
	}
	if params.Name != nil {
		org.Name = *params.Name
	}
	if params.DescriptionDE != nil {
		org.DescriptionDE = params.DescriptionDE
	}
	if params.DescriptionEN != nil {
		org.DescriptionEN = params.DescriptionEN
	}
	if params.WebsiteURL != nil {
		org.WebsiteURL = params.WebsiteURL
	}
	if params.InstagramURL != nil {
		org.InstagramURL = params.InstagramURL
	}
	if params.Location != nil {
		org.Location = params.Location
	}
	if params.Newsletter != nil {
		org.Newsletter = *params.Newsletter
	}
	org.UpdatedAt = time.Now()
	o.r.state.organizers[id] = org
	return org, nil
}

func (o organizerRepo) Delete(_ context.Context, id int64) error {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	if _, ok := o.r.state.organizers[id]; !ok {
		return storage.ErrNotFound
	}
	delete(o.r.state.organizers, id)
	for accID, account := range o.r.state.accounts {
		if account.OrganizerID != nil && *account.OrganizerID == id {
			delete(o.r.state.accounts, accID)
		}
	}
	for evID, event := range o.r.state.events {
		if event.OrganizerID == id {
			delete(o.r.state.events, evID)
		}
	}
	return nil
}

func (o organizerRepo) ListWithInviteStatus(_ context.Context) ([]storage.OrganizerWithInvite, error) {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	var out []storage.OrganizerWithInvite
	for _, org := range o.r.state.organizers {
		row := storage.OrganizerWithInvite{
			OrganizerID:   org.ID,
			OrganizerName: org.Name,
			CreatedAt:     org.CreatedAt,
			UpdatedAt:     org.UpdatedAt,
		}
		for _, account := range o.r.state.accounts {
			if account.Type == auth.AccountTypeOrganizer && account.OrganizerID != nil && *account.OrganizerID == org.ID {
				row.AccountEmail = account.Email
				row.Initialized = account.PasswordHash != nil
				row.SetupToken = account.SetupToken
				row.SetupTokenExpiresAt = account.SetupTokenExpiresAt
				break
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (o organizerRepo) NewsletterEnabled(_ context.Context, id int64) (bool, error) {
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	org, ok := o.r.state.organizers[id]
	if !ok {
		return false, nil
	}
	return org.Newsletter, nil
}

type eventRepo struct{ r *Repo }

func (e eventRepo) List(_ context.Context, filter storage.ListEventsFilter) ([]storage.Event, error) {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	var out []storage.Event
	for _, event := range e.r.state.events {
		if filter.OrganizerID != nil && event.OrganizerID != *filter.OrganizerID {
			continue
		}
		if filter.UpcomingOnly && event.StartDateTime.Before(time.Now()) {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDateTime.Before(out[j].StartDateTime) })
	if filter.Offset != nil && int(*filter.Offset) < len(out) {
		out = out[*filter.Offset:]
	} else if filter.Offset != nil {
		out = nil
	}
	if filter.Limit != nil && int(*filter.Limit) < len(out) {
		out = out[:*filter.Limit]
	}
	return out, nil
}

func (e eventRepo) Get(_ context.Context, id int64) (storage.Event, error) {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	event, ok := e.r.state.events[id]
	if !ok {
		return storage.Event{}, storage.ErrNotFound
	}
	return event, nil
}

func (e eventRepo) Create(_ context.Context, params storage.CreateEventParams) (storage.Event, error) {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	now := time.Now()
	event := storage.Event{
		ID:                e.r.state.nextEventID,
		OrganizerID:       params.OrganizerID,
		TitleDE:           params.TitleDE,
		TitleEN:           params.TitleEN,
		DescriptionDE:     params.DescriptionDE,
		DescriptionEN:     params.DescriptionEN,
		StartDateTime:     params.StartDateTime,
		EndDateTime:       params.EndDateTime,
		EventURL:          params.EventURL,
		Location:          params.Location,
		PublishApp:        params.PublishApp,
		PublishNewsletter: params.PublishNewsletter,
		PublishInIcal:     params.PublishInIcal,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	e.r.state.nextEventID++
	e.r.state.events[event.ID] = event
	return event, nil
}

func (e eventRepo) Update(_ context.Context, id int64, params storage.UpdateEventParams) (storage.Event, error) {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	event, ok := e.r.state.events[id]
	if !ok {
		return storage.Event{}, storage.ErrNotFound
	}
	if params.TitleDE != nil {
		event.TitleDE = *params.TitleDE
	}
	if params.TitleEN != nil {
		event.TitleEN = *params.TitleEN
	}
	if params.DescriptionDE != nil {
		event.DescriptionDE = params.DescriptionDE
	}
	if params.DescriptionEN != nil {
		event.DescriptionEN = params.DescriptionEN
	}
	if params.StartDateTime != nil {
		event.StartDateTime = *params.StartDateTime
	}
	if params.EndDateTime != nil {
		event.EndDateTime = params.EndDateTime
	}
	if params.EventURL != nil {
		event.EventURL = params.EventURL
	}
	if params.Location != nil {
		event.Location = params.Location
	}
	if params.PublishApp != nil {
		event.PublishApp = *params.PublishApp
	}
	if params.PublishNewsletter != nil {
		event.PublishNewsletter = *params.PublishNewsletter
	}
	if params.PublishInIcal != nil {
		event.PublishInIcal = *params.PublishInIcal
	}
	event.UpdatedAt = time.Now()
	e.r.state.events[id] = event
	return event, nil
}

func (e eventRepo) Delete(_ context.Context, id int64) error {
	e.r.mu.Lock()
	defer e.r.mu.Unlock()
	if _, ok := e.r.state.events[id]; !ok {
		return storage.ErrNotFound
	}
	delete(e.r.state.events, id)
	return nil
}

type auditRepo struct{ r *Repo }

func (a auditRepo) Insert(_ context.Context, entry storage.AuditLogEntry) error {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	entry.ID = a.r.state.nextAuditID
	a.r.state.nextAuditID++
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	a.r.state.audit = append(a.r.state.audit, entry)
	return nil
}

func (a auditRepo) List(_ context.Context, filter storage.ListAuditFilter) ([]storage.AuditLogEntry, error) {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	var out []storage.AuditLogEntry
	for _, entry := range a.r.state.audit {
		if filter.EventID != nil && entry.EventID != *filter.EventID {
			continue
		}
		if filter.OrganizerID != nil && entry.OrganizerID != *filter.OrganizerID {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if filter.Offset != nil && int(*filter.Offset) < len(out) {
		out = out[*filter.Offset:]
	} else if filter.Offset != nil {
		out = nil
	}
	if filter.Limit != nil && int(*filter.Limit) < len(out) {
		out = out[:*filter.Limit]
	}
	return out, nil
}
