package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/session"
	"github.com/samajportal/apiserver/types"
)

// NotificationHandler provides the member inbox endpoints.
type NotificationHandler struct {
	notifications *services.NotificationService
	logger        *zap.Logger
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(n *services.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: n, logger: orNop(logger)}
}

// NotificationRouter registers the signed-in member's inbox routes.
func NotificationRouter(r chi.Router, h *NotificationHandler) {
	r.Use(RequireSession)
	r.Get("/", h.Inbox)
	r.Post("/{notificationID}/read", h.MarkRead)
}

func (h *NotificationHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	_, limit, _, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := session.CurrentFromContext(r.Context())
	items, err := h.notifications.Inbox(r.Context(), st.MemberID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []types.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "notificationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st := session.CurrentFromContext(r.Context())
	if err := h.notifications.MarkRead(r.Context(), st.MemberID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
