package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/samajportal/apiserver/config"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Open connects to the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case config.StorageBackendMinio:
		return NewMinioClient(cfg.Minio)
	case config.StorageBackendGCS:
		return NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// GalleryKey returns a fresh object key for an upload into album.
// The original file extension is kept so downloads get a sensible name.
func GalleryKey(album, filename string) string {
	album = strings.Trim(strings.ToLower(strings.TrimSpace(album)), "/")
	if album == "" {
		album = "general"
	}
	album = strings.ReplaceAll(album, " ", "-")
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("gallery", album, uuid.NewString()+ext)
}

// ThumbnailKey returns the key of the thumbnail stored next to key.
func ThumbnailKey(key string) string {
	dir, file := path.Split(key)
	return dir + "thumbs/" + file
}
