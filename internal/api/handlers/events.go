package handlers

import (
	"net/http"
	"time"

	"github.com/campus-life-events/server/internal/api/middleware"
	"github.com/campus-life-events/server/internal/api/respond"
	"github.com/campus-life-events/server/internal/apperr"
	"github.com/campus-life-events/server/internal/domain/events"
	"github.com/campus-life-events/server/internal/storage"
)

type EventsHandler struct {
	Service *events.Service
}

func NewEventsHandler(service *events.Service) *EventsHandler {
	return &EventsHandler{Service: service}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter storage.ListEventsFilter
	var err error
	if filter.OrganizerID, err = queryInt64(r, "organizer_id"); err != nil {
		respond.Error(w, r, err)
		return
	}
	if filter.UpcomingOnly, err = queryBool(r, "upcoming_only"); err != nil {
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

	items, err := h.Service.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	event, err := h.Service.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, event)
}

type createEventRequest struct {
	OrganizerID       *int64     `json:"organizer_id"`
	TitleDE           string     `json:"title_de" validate:"required"`
	TitleEN           string     `json:"title_en" validate:"required"`
	DescriptionDE     *string    `json:"description_de"`
	DescriptionEN     *string    `json:"description_en"`
	StartDateTime     time.Time  `json:"start_date_time" validate:"required"`
	EndDateTime       *time.Time `json:"end_date_time"`
	EventURL          *string    `json:"event_url"`
	Location          *string    `json:"location"`
	PublishApp        *bool      `json:"publish_app"`
	PublishNewsletter *bool      `json:"publish_newsletter"`
	PublishInIcal     *bool      `json:"publish_in_ical"`
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.Principal(r)
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("missing session"))
		return
	}

	var req createEventRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	event, err := h.Service.Create(r.Context(), principal, events.CreateParams{
		OrganizerID: req.OrganizerID,
		Event: storage.CreateEventParams{
			TitleDE:           req.TitleDE,
			TitleEN:           req.TitleEN,
			DescriptionDE:     req.DescriptionDE,
			DescriptionEN:     req.DescriptionEN,
			StartDateTime:     req.StartDateTime,
			EndDateTime:       req.EndDateTime,
			EventURL:          req.EventURL,
			Location:          req.Location,
			PublishApp:        boolOrDefault(req.PublishApp, true),
			PublishNewsletter: boolOrDefault(req.PublishNewsletter, true),
			PublishInIcal:     boolOrDefault(req.PublishInIcal, true),
		},
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, event)
}

type updateEventRequest struct {
	TitleDE           *string    `json:"title_de"`
	TitleEN           *string    `json:"title_en"`
	DescriptionDE     *string    `json:"description_de"`
	DescriptionEN     *string    `json:"description_en"`
	StartDateTime     *time.Time `json:"start_date_time"`
	EndDateTime       *time.Time `json:"end_date_time"`
	EventURL          *string    `json:"event_url"`
	Location          *string    `json:"location"`
	PublishApp        *bool      `json:"publish_app"`
	PublishNewsletter *bool      `json:"publish_newsletter"`
	PublishInIcal     *bool      `json:"publish_in_ical"`
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req updateEventRequest
	if err := decodeBody(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	event, err := h.Service.Update(r.Context(), principal, id, storage.UpdateEventParams{
		TitleDE:           req.TitleDE,
		TitleEN:           req.TitleEN,
		DescriptionDE:     req.DescriptionDE,
		DescriptionEN:     req.DescriptionEN,
		StartDateTime:     req.StartDateTime,
		EndDateTime:       req.EndDateTime,
		EventURL:          req.EventURL,
		Location:          req.Location,
		PublishApp:        req.PublishApp,
		PublishNewsletter: req.PublishNewsletter,
		PublishInIcal:     req.PublishInIcal,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, event)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
