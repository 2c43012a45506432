package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samajportal/apiserver/types"
)

// GalleryRepository handles persistence for gallery metadata and the
// live stream record.
type GalleryRepository struct {
	db *sql.DB
}

func NewGalleryRepository(db *sql.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

const galleryColumns = `id, title, album, object_key, thumbnail_key, content_type, size, created_at`

func scanGalleryItem(row interface{ Scan(...any) error }) (types.GalleryItem, error) {
	var item types.GalleryItem
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Album,
		&item.ObjectKey,
		&item.ThumbnailKey,
		&item.ContentType,
		&item.Size,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.GalleryItem{}, ErrNotFound
		}
		return types.GalleryItem{}, err
	}
	return item, nil
}

// List returns gallery items newest first, optionally for one album.
func (r *GalleryRepository) List(ctx context.Context, album string, offset, limit int) ([]types.GalleryItem, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM gallery_items WHERE ($1 = '' OR album = $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, album).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + galleryColumns + `
		FROM gallery_items
		WHERE ($1 = '' OR album = $1)
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, album, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]types.GalleryItem, 0, limit)
	for rows.Next() {
		item, err := scanGalleryItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GalleryRepository) Get(ctx context.Context, id int) (types.GalleryItem, error) {
	query := `SELECT ` + galleryColumns + ` FROM gallery_items WHERE id = $1`
	return scanGalleryItem(r.db.QueryRowContext(ctx, query, id))
}

func (r *GalleryRepository) Create(ctx context.Context, item types.GalleryItem) (types.GalleryItem, error) {
	item.CreatedAt = time.Now()
	const query = `
		INSERT INTO gallery_items (title, album, object_key, thumbnail_key, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		item.Title,
		item.Album,
		item.ObjectKey,
		item.ThumbnailKey,
		item.ContentType,
		item.Size,
		item.CreatedAt,
	).Scan(&item.ID); err != nil {
		return types.GalleryItem{}, mapWriteError(err)
	}
	return item, nil
}

// CurrentLiveStream returns the most recently updated stream that is live.
func (r *GalleryRepository) CurrentLiveStream(ctx context.Context) (types.LiveStream, error) {
	const query = `
		SELECT id, title, video_id, is_live, started_at, updated_at
		FROM livestreams
		WHERE is_live
		ORDER BY updated_at DESC
		LIMIT 1`
	var ls types.LiveStream
	var startedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query).Scan(&ls.ID, &ls.Title, &ls.VideoID, &ls.IsLive, &startedAt, &ls.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LiveStream{}, ErrNotFound
		}
		return types.LiveStream{}, err
	}
	if startedAt.Valid {
		ls.StartedAt = &startedAt.Time
	}
	return ls, nil
}
