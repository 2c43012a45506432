package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/session"
	"github.com/samajportal/apiserver/types"
)

// ProfileHandler serves the signed-in member's profile and verification
// submission.
type ProfileHandler struct {
	verification *services.VerificationService
	logger       *zap.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(v *services.VerificationService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{verification: v, logger: orNop(logger)}
}

// ProfileRouter registers profile routes on the given router.
func ProfileRouter(r chi.Router, h *ProfileHandler) {
	r.Use(RequireSession)
	r.Get("/", h.GetProfile)
	r.Put("/verification", h.SubmitVerification)
}

// GetProfile returns the caller's own profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	st := session.CurrentFromContext(r.Context())
	profile, err := h.verification.GetProfile(r.Context(), st.MemberID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SubmitVerification stores lineage details and moves the profile to
// pending. The session is refreshed so later checks see the new state.
func (h *ProfileHandler) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	var req types.LineageSubmission
	if !decodeJSON(w, r, &req) {
		return
	}

	provider, _ := session.FromContext(r.Context())
	profile, err := h.verification.Submit(r.Context(), provider.Current().MemberID, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	provider.Refresh(r.Context())
	writeJSON(w, http.StatusOK, profile)
}
