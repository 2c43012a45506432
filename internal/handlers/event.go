package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/access"
	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/session"
	"github.com/samajportal/apiserver/types"
)

// EventHandler provides event listing and registration endpoints.
type EventHandler struct {
	events *services.EventService
	gate   *Gate
	logger *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events *services.EventService, gate *Gate, logger *zap.Logger) *EventHandler {
	return &EventHandler{events: events, gate: gate, logger: orNop(logger)}
}

// EventRouter registers /events routes.
func EventRouter(r chi.Router, h *EventHandler) {
	r.With(h.gate.Require(access.EventListing)).Get("/", h.ListEvents)
	r.With(h.gate.Require(access.EventListing)).Get("/{eventID}", h.GetEvent)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(access.EventRegistration))
		r.Post("/{eventID}/registration", h.Register)
		r.Delete("/{eventID}/registration", h.CancelRegistration)
	})
}

// EventView is an event listing entry. Registration carries the gate
// decision so clients can render the register button or its upsell.
type EventView struct {
	types.Event
	Registration access.Decision `json:"registration"`
}

// RegistrationRequest is the optional body of an event registration.
type RegistrationRequest struct {
	Attendees int `json:"attendees"`
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, total, err := h.events.Upcoming(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	registration := h.gate.Decide(r, access.EventRegistration)
	items := make([]EventView, 0, len(events))
	for _, e := range events {
		items = append(items, EventView{Event: e, Registration: registration})
	}
	writeJSON(w, http.StatusOK, ListResponse[EventView]{Items: items, Page: page, Limit: limit, Total: total})
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	event, err := h.events.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, EventView{Event: event, Registration: h.gate.Decide(r, access.EventRegistration)})
}

func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req RegistrationRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	st := session.CurrentFromContext(r.Context())
	reg, err := h.events.Register(r.Context(), st.MemberID, id, req.Attendees)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (h *EventHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := session.CurrentFromContext(r.Context())
	if err := h.events.Cancel(r.Context(), st.MemberID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
