package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/access"
	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/session"
	"github.com/samajportal/apiserver/internal/verification"
	"github.com/samajportal/apiserver/types"
)

// AdminHandler serves the administrator back-office.
type AdminHandler struct {
	admin         *services.AdminService
	verification  *services.VerificationService
	roles         *services.RoleService
	events        *services.EventService
	pandits       *services.PanditService
	donations     *services.DonationService
	notifications *services.NotificationService
	logger        *zap.Logger
}

// AdminServices groups the services the back-office drives.
type AdminServices struct {
	Admin         *services.AdminService
	Verification  *services.VerificationService
	Roles         *services.RoleService
	Events        *services.EventService
	Pandits       *services.PanditService
	Donations     *services.DonationService
	Notifications *services.NotificationService
}

// NewAdminHandler constructs an AdminHandler from the services in svc.
func NewAdminHandler(svc AdminServices, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:         svc.Admin,
		verification:  svc.Verification,
		roles:         svc.Roles,
		events:        svc.Events,
		pandits:       svc.Pandits,
		donations:     svc.Donations,
		notifications: svc.Notifications,
		logger:        orNop(logger),
	}
}

// AdminRouter registers /admin routes. Every route requires the admin
// dashboard feature.
func AdminRouter(r chi.Router, h *AdminHandler, gate *Gate) {
	r.Use(gate.Require(access.AdminDashboard))

	r.Get("/summary", h.Summary)

	r.Get("/verifications", h.VerificationQueue)
	r.Post("/verifications/{memberID}/approve", h.Approve)
	r.Post("/verifications/{memberID}/reject", h.Reject)
	r.Delete("/profiles/{memberID}", h.DeleteProfile)

	r.Get("/members/{memberID}/roles", h.ListRoles)
	r.Post("/members/{memberID}/roles", h.AssignRole)
	r.Delete("/members/{memberID}/roles/{role}", h.RevokeRole)

	r.Get("/events/{eventID}/registrations", h.EventRegistrations)
	r.Put("/events/{eventID}/registrations/{memberID}/attendance", h.MarkAttendance)

	r.Get("/bookings", h.Bookings)
	r.Put("/bookings/{bookingID}/status", h.UpdateBookingStatus)

	r.Get("/donations", h.Donations)

	r.Post("/notifications/broadcast", h.Broadcast)
}

// OutcomeResponse reports a review action. Changed is false when the
// profile was not pending and nothing happened.
type OutcomeResponse struct {
	Profile types.Profile            `json:"profile"`
	From    types.VerificationStatus `json:"from"`
	To      types.VerificationStatus `json:"to"`
	Changed bool                     `json:"changed"`
}

func outcomeResponse(out verification.Outcome) OutcomeResponse {
	return OutcomeResponse{Profile: out.Profile, From: out.From, To: out.To, Changed: out.Changed}
}

// RejectRequest carries the reason shown to the member.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RoleRequest names the role to grant.
type RoleRequest struct {
	Role types.Role `json:"role"`
}

// AttendanceRequest records whether a member attended.
type AttendanceRequest struct {
	Attended bool `json:"attended"`
}

// BookingStatusRequest is the new status of a booking.
type BookingStatusRequest struct {
	Status types.BookingStatus `json:"status"`
}

// BroadcastRequest is a notification sent to every member.
type BroadcastRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *AdminHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.admin.Summary(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *AdminHandler) VerificationQueue(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := types.VerificationPending
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status = types.VerificationStatus(raw)
	}

	profiles, total, err := h.verification.Queue(r.Context(), status, offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if profiles == nil {
		profiles = []types.Profile{}
	}
	writeJSON(w, http.StatusOK, ListResponse[types.Profile]{Items: profiles, Page: page, Limit: limit, Total: total})
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.verification.Approve(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse(out))
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := h.verification.Reject(r.Context(), memberID, req.Reason)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse(out))
}

func (h *AdminHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.verification.DeleteProfile(r.Context(), memberID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	roles, err := h.roles.List(r.Context(), memberID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if roles == nil {
		roles = []types.RoleAssignment{}
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *AdminHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ra, err := h.roles.Assign(r.Context(), memberID, req.Role)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ra)
}

func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	memberID, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	role := types.Role(chi.URLParam(r, "role"))
	actor := session.CurrentFromContext(r.Context())
	if err := h.roles.Revoke(r.Context(), actor.MemberID, memberID, role); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) EventRegistrations(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	regs, err := h.events.Registrations(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if regs == nil {
		regs = []types.EventRegistration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *AdminHandler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r, "eventID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	memberID, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req AttendanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.events.MarkAttendance(r.Context(), eventID, memberID, req.Attended); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := types.BookingStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	bookings, err := h.pandits.Bookings(r.Context(), status, offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []types.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *AdminHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "bookingID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req BookingStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.pandits.UpdateBookingStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Donations(w http.ResponseWriter, r *http.Request) {
	_, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	donations, err := h.donations.All(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if donations == nil {
		donations = []types.Donation{}
	}
	writeJSON(w, http.StatusOK, donations)
}

func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.notifications.Broadcast(r.Context(), req.Title, req.Body); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
