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

// PanditHandler serves the pandit directory, bookings and reviews.
type PanditHandler struct {
	pandits *services.PanditService
	gate    *Gate
	logger  *zap.Logger
}

// NewPanditHandler constructs a PanditHandler.
func NewPanditHandler(pandits *services.PanditService, gate *Gate, logger *zap.Logger) *PanditHandler {
	return &PanditHandler{pandits: pandits, gate: gate, logger: orNop(logger)}
}

// PanditRouter registers /pandits routes.
func PanditRouter(r chi.Router, h *PanditHandler) {
	r.With(h.gate.Require(access.PanditDirectory)).Get("/", h.ListPandits)
	r.With(h.gate.Require(access.PanditDirectory)).Get("/{panditID}", h.GetPandit)
	r.With(h.gate.Require(access.PanditBooking)).Post("/{panditID}/bookings", h.CreateBooking)

	r.Get("/{panditID}/reviews", h.ListReviews)
	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(access.PanditReview))
		r.Post("/{panditID}/reviews", h.CreateReview)
		r.Put("/{panditID}/reviews/{reviewID}", h.UpdateReview)
		r.Delete("/{panditID}/reviews/{reviewID}", h.DeleteReview)
	})
}

// BookingRouter registers the member's own booking list.
func BookingRouter(r chi.Router, h *PanditHandler) {
	r.With(h.gate.Require(access.PanditBooking)).Get("/", h.MyBookings)
}

// PanditView is a directory entry. Contact details are blanked unless
// Contact allows them.
type PanditView struct {
	types.Pandit
	Contact access.Decision `json:"contact"`
}

func (h *PanditHandler) view(p types.Pandit, contact access.Decision) PanditView {
	if !contact.Allowed() {
		p.Phone = ""
		p.WhatsApp = ""
	}
	return PanditView{Pandit: p, Contact: contact}
}

func (h *PanditHandler) ListPandits(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pandits, total, err := h.pandits.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	contact := h.gate.Decide(r, access.PanditContact)
	items := make([]PanditView, 0, len(pandits))
	for _, p := range pandits {
		items = append(items, h.view(p, contact))
	}
	writeJSON(w, http.StatusOK, ListResponse[PanditView]{Items: items, Page: page, Limit: limit, Total: total})
}

func (h *PanditHandler) GetPandit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "panditID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.pandits.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(p, h.gate.Decide(r, access.PanditContact)))
}

func (h *PanditHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "panditID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req services.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st := session.CurrentFromContext(r.Context())
	booking, err := h.pandits.Book(r.Context(), st.MemberID, id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *PanditHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	st := session.CurrentFromContext(r.Context())
	bookings, err := h.pandits.MyBookings(r.Context(), st.MemberID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []types.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *PanditHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "panditID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reviews, err := h.pandits.Reviews(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if reviews == nil {
		reviews = []types.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *PanditHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "panditID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req services.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st := session.CurrentFromContext(r.Context())
	review, err := h.pandits.CreateReview(r.Context(), st.MemberID, id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *PanditHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	panditID, reviewID, ok := reviewParams(w, r)
	if !ok {
		return
	}
	var req services.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	st := session.CurrentFromContext(r.Context())
	review, err := h.pandits.UpdateReview(r.Context(), st.MemberID, panditID, reviewID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *PanditHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	panditID, reviewID, ok := reviewParams(w, r)
	if !ok {
		return
	}

	st := session.CurrentFromContext(r.Context())
	if err := h.pandits.DeleteReview(r.Context(), st.MemberID, st.IsAdmin, panditID, reviewID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reviewParams(w http.ResponseWriter, r *http.Request) (panditID, reviewID int, ok bool) {
	panditID, err := parseIDParam(r, "panditID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	reviewID, err = parseIDParam(r, "reviewID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return panditID, reviewID, true
}
