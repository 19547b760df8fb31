package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campus-life-events/server/internal/audit"
	"github.com/campus-life-events/server/internal/auth"
	"github.com/campus-life-events/server/internal/config"
	"github.com/campus-life-events/server/internal/domain/accounts"
	"github.com/campus-life-events/server/internal/domain/events"
	"github.com/campus-life-events/server/internal/domain/organizers"
	"github.com/campus-life-events/server/internal/domain/sessions"
	"github.com/campus-life-events/server/internal/email"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/campus-life-events/server/internal/storage/storagetest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "Crz7!vK2-qated#Wm9+xLb4e"

func newTestRouter(t *testing.T) (http.Handler, *storagetest.Repo) {
	t.Helper()
	repo := storagetest.NewRepo()
	logger := zerolog.Nop()
	emailSvc, err := email.NewService(config.EmailConfig{
		RegistrationBaseURL: "https://campus-life.example/register",
		ResetBaseURL:        "https://campus-life.example/reset-password",
	}, logger)
	require.NoError(t, err)

	cfg := config.Config{
		Session:     config.SessionConfig{TTL: 24 * time.Hour, CookieSecure: false},
		Environment: "test",
	}
	sessionMgr := sessions.NewManager(repo, cfg.Session.TTL, logger)
	accountsSvc := accounts.NewService(repo, sessionMgr, emailSvc, auth.DefaultPolicy(), logger)
	organizersSvc := organizers.NewService(repo, emailSvc, logger)
	eventsSvc := events.NewService(repo, audit.NewRecorder(), logger)

	return NewRouter(Deps{
		Config:     cfg,
		Logger:     logger,
		Accounts:   accountsSvc,
		Organizers: organizersSvc,
		Events:     eventsSvc,
		Sessions:   sessionMgr,
	}), repo
}

func seedAdmin(t *testing.T, repo *storagetest.Repo, emailAddr string) storage.Account {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	return repo.SeedAccount(storage.Account{
		Type:         auth.AccountTypeAdmin,
		DisplayName:  "Root Admin",
		Email:        &emailAddr,
		PasswordHash: &hash,
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("no session_id cookie in response")
	return nil
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func loginAdmin(t *testing.T, handler http.Handler, repo *storagetest.Repo) *http.Cookie {
	t.Helper()
	seedAdmin(t, repo, "admin@uni.example")
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@uni.example","password":"`+testPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return sessionCookie(t, rec)
}

func TestLoginSetsCookie(t *testing.T) {
	handler, repo := newTestRouter(t)
	seedAdmin(t, repo, "admin@uni.example")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@uni.example","password":"`+testPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(t, rec)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)

	var user accounts.AuthenticatedUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "Root Admin", user.DisplayName)
	assert.Equal(t, auth.AccountTypeAdmin, user.AccountType)

	me := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, me.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler, repo := newTestRouter(t)
	seedAdmin(t, repo, "admin@uni.example")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login",
		`{"email":"admin@uni.example","password":"Totally-Wrong-Password-9!"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid e-mail or password", errorMessage(t, rec))
}

func TestLoginValidatesBody(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login",
		`{"email":"not-an-email","password":"x"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be a valid e-mail address", errorMessage(t, rec))
}

func TestMeWithoutSession(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing session", errorMessage(t, rec))

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "",
		&http.Cookie{Name: "session_id", Value: "not-a-uuid"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid session format", errorMessage(t, rec))
}

func TestLogoutRevokesSession(t *testing.T) {
	handler, repo := newTestRouter(t)
	cookie := loginAdmin(t, handler, repo)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/logout", "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	me := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "", cookie)
	require.Equal(t, http.StatusUnauthorized, me.Code)
	assert.Equal(t, "invalid or expired session", errorMessage(t, me))
}

func TestInvitationFlow(t *testing.T) {
	handler, repo := newTestRouter(t)
	adminCookie := loginAdmin(t, handler, repo)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/organizers",
		`{"name":"Debate Club","email":"debate@uni.example"}`, adminCookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		SetupToken string `json:"setup_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SetupToken)

	info := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register-info",
		`{"token":"`+created.SetupToken+`"}`, nil)
	require.Equal(t, http.StatusOK, info.Code)
	var tokenInfo accounts.SetupTokenInfo
	require.NoError(t, json.Unmarshal(info.Body.Bytes(), &tokenInfo))
	assert.Equal(t, "Debate Club", tokenInfo.AccountName)
	assert.Equal(t, auth.AccountTypeOrganizer, tokenInfo.AccountType)

	init := doJSON(t, handler, http.MethodPost, "/api/v1/auth/init",
		`{"token":"`+created.SetupToken+`","email":"debate@uni.example","password":"`+testPassword+`"}`, nil)
	require.Equal(t, http.StatusOK, init.Code)
	orgCookie := sessionCookie(t, init)

	me := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "", orgCookie)
	require.Equal(t, http.StatusOK, me.Code)
	var user accounts.AuthenticatedUser
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &user))
	assert.Equal(t, "Debate Club", user.DisplayName)
	require.NotNil(t, user.OrganizerID)

	replay := doJSON(t, handler, http.MethodPost, "/api/v1/auth/init",
		`{"token":"`+created.SetupToken+`","email":"other@uni.example","password":"`+testPassword+`"}`, nil)
	require.Equal(t, http.StatusBadRequest, replay.Code)
	assert.Equal(t, "invalid setup token", errorMessage(t, replay))
}

func TestOrganizersGuards(t *testing.T) {
	handler, repo := newTestRouter(t)
	repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})

	list := doJSON(t, handler, http.MethodGet, "/api/v1/organizers", "", nil)
	require.Equal(t, http.StatusOK, list.Code)

	create := doJSON(t, handler, http.MethodPost, "/api/v1/organizers",
		`{"name":"Debate Club","email":"debate@uni.example"}`, nil)
	require.Equal(t, http.StatusUnauthorized, create.Code)
	assert.Equal(t, "missing session", errorMessage(t, create))
}

func TestEventLifecycleWithAudit(t *testing.T) {
	handler, repo := newTestRouter(t)
	adminCookie := loginAdmin(t, handler, repo)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})

	start := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/events",
		`{"organizer_id":1,"title_de":"Schachturnier","title_en":"Chess Tournament","start_date_time":"`+start+`"}`, adminCookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	var event storage.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, org.ID, event.OrganizerID)
	assert.True(t, event.PublishApp)

	logs := doJSON(t, handler, http.MethodGet, "/api/v1/audit-logs", "", adminCookie)
	require.Equal(t, http.StatusOK, logs.Code)
	var entries []storage.AuditLogEntry
	require.NoError(t, json.Unmarshal(logs.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, storage.AuditCreate, entries[0].Type)
	assert.Equal(t, event.ID, entries[0].EventID)

	del := doJSON(t, handler, http.MethodDelete, "/api/v1/events/1", "", adminCookie)
	require.Equal(t, http.StatusNoContent, del.Code)
	assert.Len(t, repo.AuditEntries(), 2)
}

func TestEventListPagination(t *testing.T) {
	handler, repo := newTestRouter(t)
	adminCookie := loginAdmin(t, handler, repo)
	org := repo.SeedOrganizer(storage.Organizer{Name: "Chess Club"})
	for i := 0; i < 3; i++ {
		repo.SeedEvent(storage.Event{
			OrganizerID:   org.ID,
			TitleDE:       "Runde",
			TitleEN:       "Round",
			StartDateTime: time.Now().Add(time.Duration(i+1) * time.Hour),
		})
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/events?limit=2&offset=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page []storage.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page, 2)

	bad := doJSON(t, handler, http.MethodGet, "/api/v1/events?limit=nope", "", nil)
	require.Equal(t, http.StatusBadRequest, bad.Code)
	assert.Equal(t, "invalid limit", errorMessage(t, bad))

	badAudit := doJSON(t, handler, http.MethodGet, "/api/v1/audit-logs?offset=nope", "", adminCookie)
	require.Equal(t, http.StatusBadRequest, badAudit.Code)
	assert.Equal(t, "invalid offset", errorMessage(t, badAudit))
}

func TestPasswordResetEndpoints(t *testing.T) {
	handler, repo := newTestRouter(t)
	seedAdmin(t, repo, "admin@uni.example")

	known := doJSON(t, handler, http.MethodPost, "/api/v1/auth/request-password-reset",
		`{"email":"admin@uni.example"}`, nil)
	unknown := doJSON(t, handler, http.MethodPost, "/api/v1/auth/request-password-reset",
		`{"email":"nobody@uni.example"}`, nil)
	assert.Equal(t, http.StatusNoContent, known.Code)
	assert.Equal(t, http.StatusNoContent, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	tokens := repo.ResetTokens()
	require.Len(t, tokens, 1)

	confirm := doJSON(t, handler, http.MethodPost, "/api/v1/auth/reset-password",
		`{"token":"`+tokens[0].Token+`","new_password":"N3w-Secret#Value!2026-ok"}`, nil)
	require.Equal(t, http.StatusNoContent, confirm.Code)

	again := doJSON(t, handler, http.MethodPost, "/api/v1/auth/reset-password",
		`{"token":"`+tokens[0].Token+`","new_password":"N3w-Secret#Value!2026-ok"}`, nil)
	require.Equal(t, http.StatusBadRequest, again.Code)
	assert.Equal(t, "Invalid or expired reset token", errorMessage(t, again))
}

func TestMethodNotAllowed(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/auth/login", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Allow"))
}

func TestHealthEndpoints(t *testing.T) {
	handler, _ := newTestRouter(t)

	healthz := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, healthz.Code)

	readyz := doJSON(t, handler, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, readyz.Code)
}
