package handlers

import (
	"net/http"
	"time"

	"github.com/campus-life-events/server/internal/api/middleware"
	"github.com/campus-life-events/server/internal/api/respond"
	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/domain/accounts"
	"github.com/campus-life-events/server/internal/storage"
)

type AdminsHandler struct {
	Accounts *accounts.Service
}

func NewAdminsHandler(accountsSvc *accounts.Service) *AdminsHandler {
	return &AdminsHandler{Accounts: accountsSvc}
}

type inviteAdminRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

func (h *AdminsHandler) Invite(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	var req inviteAdminRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	token, err := h.Accounts.InviteAdmin(r.Context(), principal, req.DisplayName, req.Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, setupTokenResponse{SetupToken: token})
}

// adminSummary is the listing shape for administrator accounts; hashes and
// tokens never leave the server.
type adminSummary struct {
	ID              int64      `json:"id"`
	DisplayName     string     `json:"display_name"`
	Email           *string    `json:"email,omitempty"`
	Initialized     bool       `json:"initialized"`
	CreatedAt       time.Time  `json:"created_at"`
	InviteExpiresAt *time.Time `json:"invite_expires_at,omitempty"`
}

func (h *AdminsHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	admins, err := h.Accounts.ListAdmins(r.Context(), principal)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	out := make([]adminSummary, 0, len(admins))
	for _, admin := range admins {
		out = append(out, toAdminSummary(admin))
	}
	respond.JSON(w, http.StatusOK, out)
}

func toAdminSummary(account storage.Account) adminSummary {
	summary := adminSummary{
		ID:          account.ID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		Initialized: account.Initialized(),
		CreatedAt:   account.CreatedAt,
	}
	if !summary.Initialized {
		summary.InviteExpiresAt = account.SetupTokenExpiresAt
	}
	return summary
}
