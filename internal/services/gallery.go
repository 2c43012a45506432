package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/samajportal/apiserver/internal/sanitize"
	"github.com/samajportal/apiserver/internal/storage"
	"github.com/samajportal/apiserver/types"
)

// GalleryRepository defines persistence operations for gallery items
// and the live stream row.
type GalleryRepository interface {
	List(ctx context.Context, album string, offset, limit int) ([]types.GalleryItem, int, error)
	Get(ctx context.Context, id int) (types.GalleryItem, error)
	Create(ctx context.Context, item types.GalleryItem) (types.GalleryItem, error)
	CurrentLiveStream(ctx context.Context) (types.LiveStream, error)
}

// Upload is an object to add to the gallery.
type Upload struct {
	Title       string
	Album       string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader

	// Thumbnail is optional.
	Thumbnail     io.Reader
	ThumbnailSize int64
}

// GalleryService serves gallery images from object storage.
type GalleryService struct {
	repo    GalleryRepository
	objects storage.ObjectStorage
	logger  *zap.Logger
}

// NewGalleryService constructs a GalleryService storing objects in objects.
func NewGalleryService(repo GalleryRepository, objects storage.ObjectStorage, logger *zap.Logger) *GalleryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GalleryService{repo: repo, objects: objects, logger: logger}
}

// List returns a page of gallery items, optionally within one album.
func (s *GalleryService) List(ctx context.Context, album string, offset, limit int) ([]types.GalleryItem, int, error) {
	return s.repo.List(ctx, strings.TrimSpace(album), offset, clampLimit(limit))
}

// Download opens the full-resolution object of item id.
func (s *GalleryService) Download(ctx context.Context, id int) (types.GalleryItem, io.ReadCloser, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.GalleryItem{}, nil, err
	}
	rc, err := s.objects.Get(ctx, item.ObjectKey)
	if err != nil {
		return types.GalleryItem{}, nil, fmt.Errorf("open %s: %w", item.ObjectKey, err)
	}
	return item, rc, nil
}

// Thumbnail opens the thumbnail of item id. Items without a thumbnail
// report storage.ErrObjectNotFound.
func (s *GalleryService) Thumbnail(ctx context.Context, id int) (types.GalleryItem, io.ReadCloser, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.GalleryItem{}, nil, err
	}
	if item.ThumbnailKey == "" {
		return types.GalleryItem{}, nil, storage.ErrObjectNotFound
	}
	rc, err := s.objects.Get(ctx, item.ThumbnailKey)
	if err != nil {
		return types.GalleryItem{}, nil, fmt.Errorf("open %s: %w", item.ThumbnailKey, err)
	}
	return item, rc, nil
}

// Add stores an upload and records it. Stored objects are removed again
// if the row cannot be written.
func (s *GalleryService) Add(ctx context.Context, up Upload) (types.GalleryItem, error) {
	up.Title = sanitize.Text(up.Title)
	if up.Title == "" {
		return types.GalleryItem{}, invalid("title is required")
	}
	if up.Body == nil {
		return types.GalleryItem{}, invalid("file is required")
	}
	if up.ContentType == "" {
		up.ContentType = "application/octet-stream"
	}

	item := types.GalleryItem{
		Title:       up.Title,
		Album:       sanitize.Text(up.Album),
		ObjectKey:   storage.GalleryKey(up.Album, up.Filename),
		ContentType: up.ContentType,
		Size:        up.Size,
	}
	if err := s.objects.Put(ctx, item.ObjectKey, up.Body, up.Size, up.ContentType); err != nil {
		return types.GalleryItem{}, fmt.Errorf("put %s: %w", item.ObjectKey, err)
	}
	if up.Thumbnail != nil {
		item.ThumbnailKey = storage.ThumbnailKey(item.ObjectKey)
		if err := s.objects.Put(ctx, item.ThumbnailKey, up.Thumbnail, up.ThumbnailSize, up.ContentType); err != nil {
			s.cleanup(ctx, item.ObjectKey)
			return types.GalleryItem{}, fmt.Errorf("put %s: %w", item.ThumbnailKey, err)
		}
	}

	saved, err := s.repo.Create(ctx, item)
	if err != nil {
		s.cleanup(ctx, item.ObjectKey, item.ThumbnailKey)
		return types.GalleryItem{}, err
	}
	s.logger.Info("gallery item added",
		zap.Int("item_id", saved.ID),
		zap.String("bucket", s.objects.Bucket()),
		zap.String("key", saved.ObjectKey))
	return saved, nil
}

// CurrentLiveStream returns the active stream or store.ErrNotFound.
func (s *GalleryService) CurrentLiveStream(ctx context.Context) (types.LiveStream, error) {
	return s.repo.CurrentLiveStream(ctx)
}

func (s *GalleryService) cleanup(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logger.Warn("remove orphaned object", zap.String("key", key), zap.Error(err))
		}
	}
}
