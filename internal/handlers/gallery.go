package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/access"
	"github.com/samajportal/apiserver/internal/services"
	"github.com/samajportal/apiserver/types"
)

// GalleryHandler provides gallery and live stream endpoints.
type GalleryHandler struct {
	gallery *services.GalleryService
	gate    *Gate
	logger  *zap.Logger
}

// NewGalleryHandler constructs a GalleryHandler.
func NewGalleryHandler(gallery *services.GalleryService, gate *Gate, logger *zap.Logger) *GalleryHandler {
	return &GalleryHandler{gallery: gallery, gate: gate, logger: orNop(logger)}
}

// GalleryRouter registers /gallery routes.
func GalleryRouter(r chi.Router, h *GalleryHandler) {
	r.With(h.gate.Require(access.GalleryThumbnails)).Get("/", h.ListItems)
	r.With(h.gate.Require(access.GalleryThumbnails)).Get("/{itemID}/thumbnail", h.Thumbnail)
	r.With(h.gate.Require(access.GalleryDownload)).Get("/{itemID}/download", h.Download)
}

// LiveRouter registers the live stream route.
func LiveRouter(r chi.Router, h *GalleryHandler) {
	r.With(h.gate.Require(access.LiveStream)).Get("/", h.LiveStream)
}

// GalleryItemView is a gallery entry with the download decision for the
// caller.
type GalleryItemView struct {
	types.GalleryItem
	Download access.Decision `json:"download"`
}

func (h *GalleryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.gallery.List(r.Context(), r.URL.Query().Get("album"), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	download := h.gate.Decide(r, access.GalleryDownload)
	views := make([]GalleryItemView, 0, len(items))
	for _, item := range items {
		views = append(views, GalleryItemView{GalleryItem: item, Download: download})
	}
	writeJSON(w, http.StatusOK, ListResponse[GalleryItemView]{Items: views, Page: page, Limit: limit, Total: total})
}

func (h *GalleryHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, body, err := h.gallery.Thumbnail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.stream(w, item, body, "")
}

func (h *GalleryHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, body, err := h.gallery.Download(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("Content-Length", strconv.FormatInt(item.Size, 10))
	h.stream(w, item, body, downloadName(item))
}

func (h *GalleryHandler) stream(w http.ResponseWriter, item types.GalleryItem, body io.Reader, filename string) {
	contentType := item.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("gallery stream interrupted", zap.Int("item_id", item.ID), zap.Error(err))
	}
}

func downloadName(item types.GalleryItem) string {
	return fmt.Sprintf("gallery-%d%s", item.ID, path.Ext(item.ObjectKey))
}

func (h *GalleryHandler) LiveStream(w http.ResponseWriter, r *http.Request) {
	stream, err := h.gallery.CurrentLiveStream(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}
