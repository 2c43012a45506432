package types

import "time"

// GalleryItem is an image stored in object storage. Thumbnails are
// public; the full-resolution object is downloadable by verified members.
type GalleryItem struct {
	ID           int       `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Album        string    `json:"album,omitempty" db:"album"`
	ObjectKey    string    `json:"-" db:"object_key"`
	ThumbnailKey string    `json:"thumbnail_key,omitempty" db:"thumbnail_key"`
	ContentType  string    `json:"content_type" db:"content_type"`
	Size         int64     `json:"size" db:"size"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LiveStream is the community broadcast currently configured.
type LiveStream struct {
	ID        int        `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	VideoID   string     `json:"video_id" db:"video_id"`
	IsLive    bool       `json:"is_live" db:"is_live"`
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
