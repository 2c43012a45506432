package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samajportal/apiserver/config"
)

func TestGalleryKey(t *testing.T) {
	key := GalleryKey(" Diwali 2025 ", "IMG_001.JPG")
	assert.True(t, strings.HasPrefix(key, "gallery/diwali-2025/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, GalleryKey("Diwali 2025", "IMG_001.JPG"))

	assert.True(t, strings.HasPrefix(GalleryKey("", "a.png"), "gallery/general/"))
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "gallery/holi/thumbs/abc.jpg", ThumbnailKey("gallery/holi/abc.jpg"))
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Backend: "s4"})
	assert.Error(t, err)
}

func TestNewMinioClientValidates(t *testing.T) {
	_, err := NewMinioClient(config.MinioConfig{Endpoint: "localhost:9000", Bucket: "g"})
	assert.Error(t, err)

	c, err := NewMinioClient(config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "gallery",
	})
	require.NoError(t, err)
	assert.Equal(t, "gallery", c.Bucket())
}
