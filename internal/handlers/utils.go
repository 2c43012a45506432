package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/internal/storage"
	"github.com/samajportal/apiserver/internal/store"
	"github.com/samajportal/apiserver/internal/verification"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// ListResponse wraps a paginated list.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service and store errors onto HTTP responses.
// Unexpected errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *verification.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, services.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request",
			Message: strings.TrimPrefix(err.Error(), services.ErrInvalidInput.Error()+": "),
		})
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrObjectNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrCapacity):
		writeError(w, http.StatusConflict, "event is full")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseIDParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
