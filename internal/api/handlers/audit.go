package handlers

import (
	"net/http"

	"github.com/campus-life-events/server/internal/api/middleware"
	"github.com/campus-life-events/server/internal/api/respond"
	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/domain/events"
	"github.com/campus-life-events/server/internal/storage"
)

type AuditHandler struct {
	Events *events.Service
}

func NewAuditHandler(eventsSvc *events.Service) *AuditHandler {
	return &AuditHandler{Events: eventsSvc}
}

// List returns audit entries. Organizers only ever see their own; the
// service forces the scope.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	var filter storage.ListAuditFilter
	var err error
	if filter.EventID, err = queryInt64(r, "event_id"); err != nil {
		respond.Error(w, r, err)
		return
	}
	if filter.OrganizerID, err = queryInt64(r, "organizer_id"); err != nil {
		respond.Error(w, r, err)
		return
	}
	if filter.Limit, err = queryInt32(r, "limit"); err != nil {
		respond.Error(w, r, err)
		return
	}
	if filter.Offset, err = queryInt32(r, "offset"); err != nil {
		respond.Error(w, r, err)
		return
	}

	entries, err := h.Events.ListAuditLogs(r.Context(), principal, filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}
