package handlers

import (
	"net/http"

	"github.com/campus-life-events/server/internal/api/middleware"
	"github.com/campus-life-events/server/internal/api/respond"
	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/domain/accounts"
	"github.com/campus-life-events/server/internal/domain/sessions"
	"github.com/campus-life-events/server/internal/storage"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	Accounts     *accounts.Service
	Sessions     *sessions.Manager
	CookieSecure bool
}

func NewAuthHandler(accountsSvc *accounts.Service, sessionMgr *sessions.Manager, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Accounts: accountsSvc, Sessions: sessionMgr, CookieSecure: cookieSecure}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	session, user, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	respond.JSON(w, http.StatusOK, user)
}

type registerInfoRequest struct {
	Token string `json:"token" validate:"required"`
}

// RegisterInfo resolves a setup token to the pending account's name and type
// so the registration page can greet the invitee.
func (h *AuthHandler) RegisterInfo(w http.ResponseWriter, r *http.Request) {
	var req registerInfoRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	info, err := h.Accounts.LookupSetupToken(r.Context(), req.Token)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, info)
}

type initAccountRequest struct {
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Init(w http.ResponseWriter, r *http.Request) {
	var req initAccountRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	session, user, err := h.Accounts.InitAccount(r.Context(), req.Token, req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	respond.JSON(w, http.StatusOK, user)
}

// Logout revokes the presented session, if any, and clears the cookie
// either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.Accounts.Logout(r.Context(), cookie.Value); err != nil {
			respond.Error(w, r, err)
			return
		}
	}
	h.clearSessionCookie(w)
	respond.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}
	user, err := h.Accounts.CurrentUser(r.Context(), principal)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ChangePassword swaps the password and revokes every session, including the
// one that made this request. The client has to log in again.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.Accounts.ChangePassword(r.Context(), principal, req.CurrentPassword, req.NewPassword); err != nil {
		respond.Error(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	respond.NoContent(w)
}

type requestResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset always answers 204. A failure is logged but never
// surfaced, so the endpoint cannot be used to probe for accounts.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.Accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("password reset request failed")
	}
	respond.NoContent(w)
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.Accounts.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session storage.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID.String(),
		Path:     "/",
		MaxAge:   int(h.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
