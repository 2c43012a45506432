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

// DonationHandler provides the donations portal endpoints.
type DonationHandler struct {
	donations *services.DonationService
	logger    *zap.Logger
}

// NewDonationHandler constructs a DonationHandler.
func NewDonationHandler(donations *services.DonationService, logger *zap.Logger) *DonationHandler {
	return &DonationHandler{donations: donations, logger: orNop(logger)}
}

// DonationRouter registers /donations routes. The whole surface is gated.
func DonationRouter(r chi.Router, h *DonationHandler, gate *Gate) {
	r.Use(gate.Require(access.Donations))
	r.Get("/", h.MyDonations)
	r.Post("/", h.Donate)
}

func (h *DonationHandler) MyDonations(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := session.CurrentFromContext(r.Context())
	donations, err := h.donations.Mine(r.Context(), st.MemberID, offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if donations == nil {
		donations = []types.Donation{}
	}
	writeJSON(w, http.StatusOK, donations)
}

func (h *DonationHandler) Donate(w http.ResponseWriter, r *http.Request) {
	var req services.DonationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	st := session.CurrentFromContext(r.Context())
	donation, err := h.donations.Donate(r.Context(), st.MemberID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, donation)
}
