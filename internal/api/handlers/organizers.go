package handlers

import (
	"net/http"

	"github.com/campus-life-events/server/internal/api/middleware"
	"github.com/campus-life-events/server/internal/api/respond"
	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/domain/organizers"
	"github.com/campus-life-events/server/internal/storage"
)

type OrganizersHandler struct {
	Service *organizers.Service
}

func NewOrganizersHandler(service *organizers.Service) *OrganizersHandler {
	return &OrganizersHandler{Service: service}
}

func (h *OrganizersHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

func (h *OrganizersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	organizer, err := h.Service.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, organizer)
}

type createOrganizerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type setupTokenResponse struct {
	SetupToken string `json:"setup_token"`
}

func (h *OrganizersHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	var req createOrganizerRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	_, token, err := h.Service.Create(r.Context(), principal, req.Name, req.Email)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, setupTokenResponse{SetupToken: token})
}

type updateOrganizerRequest struct {
	Name          *string `json:"name"`
	DescriptionDE *string `json:"description_de"`
	DescriptionEN *string `json:"description_en"`
	WebsiteURL    *string `json:"website_url"`
	InstagramURL  *string `json:"instagram_url"`
	Location      *string `json:"location"`
	Newsletter    *bool   `json:"newsletter"`
}

func (h *OrganizersHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateOrganizerRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	organizer, err := h.Service.Update(r.Context(), principal, id, storage.UpdateOrganizerParams{
		Name:          req.Name,
		DescriptionDE: req.DescriptionDE,
		DescriptionEN: req.DescriptionEN,
		WebsiteURL:    req.WebsiteURL,
		InstagramURL:  req.InstagramURL,
		Location:      req.Location,
		Newsletter:    req.Newsletter,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, organizer)
}

func (h *OrganizersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), principal, id); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

// ListAdmin returns organizers joined with their invite state for the admin
// dashboard.
func (h *OrganizersHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	rows, err := h.Service.ListWithInviteStatus(r.Context(), principal)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

// GenerateSetupToken re-arms the organizer account's invitation and returns
// the fresh token.
func (h *OrganizersHandler) GenerateSetupToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	token, err := h.Service.RegenerateSetupToken(r.Context(), principal, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, setupTokenResponse{SetupToken: token})
}
