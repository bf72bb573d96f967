package search

import (
	"context"

	"github.com/rotisserie/eris"
	"gorm.io/gorm"

	"merfie/app/internal/content"
	"merfie/app/internal/multimap"
)

// Thumbnail is the thumbnail-size image shown next to a result.
type Thumbnail struct {
	ID        uint    `json:"id"`
	GroupID   string  `json:"groupId"`
	Path      string  `json:"path"`
	Alt       *string `json:"alt,omitempty"`
	FocalX    *int    `json:"focalX,omitempty"`
	FocalY    *int    `json:"focalY,omitempty"`
	Artist    *string `json:"artist,omitempty"`
	ArtistURL *string `json:"artistUrl,omitempty"`
}

// Aggregator batch-loads the associations shown on a result page.
type Aggregator interface {
	// Tags maps each content id to its labels in alphabetical order.
	Tags(ctx context.Context, ids []uint) (map[uint][]string, error)
	// Thumbnails maps each content id to at most one thumbnail image.
	Thumbnails(ctx context.Context, ids []uint) (map[uint]Thumbnail, error)
}

// GormAggregator loads tags and thumbnails with one query each.
type GormAggregator struct {
	db *gorm.DB
}

// NewAggregator constructs a Gorm-backed aggregator.
func NewAggregator(db *gorm.DB) (*GormAggregator, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	return &GormAggregator{db: db}, nil
}

var _ Aggregator = (*GormAggregator)(nil)

type tagRow struct {
	ContentID uint
	Label     string
}

// Tags implements Aggregator.
func (a *GormAggregator) Tags(ctx context.Context, ids []uint) (map[uint][]string, error) {
	where, args := In("content_tags.content_id", ids).SQL()

	var rows []tagRow
	err := a.db.WithContext(ctx).
		Table("content_tags").
		Select("content_tags.content_id AS content_id, tags.tag AS label").
		Joins("JOIN tags ON tags.id = content_tags.tag_id").
		Where(where, args...).
		Order("content_tags.content_id ASC, tags.tag ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, eris.Wrap(err, "loading tags for result page")
	}

	return multimap.GroupBy(rows,
		func(row tagRow) uint { return row.ContentID },
		func(row tagRow) string { return row.Label },
	), nil
}

// Thumbnails implements Aggregator. When an item has several thumbnails the lowest image id wins.
func (a *GormAggregator) Thumbnails(ctx context.Context, ids []uint) (map[uint]Thumbnail, error) {
	where, args := And(
		In("content_id", ids),
		Eq("image_size", content.SizeThumbnail),
	).SQL()

	var images []content.Image
	err := a.db.WithContext(ctx).
		Where(where, args...).
		Order("id ASC").
		Find(&images).Error
	if err != nil {
		return nil, eris.Wrap(err, "loading thumbnails for result page")
	}

	first := multimap.FirstBy(images, func(img content.Image) uint { return img.ContentID })
	thumbnails := make(map[uint]Thumbnail, len(first))
	for contentID, img := range first {
		thumbnails[contentID] = Thumbnail{
			ID:        img.ID,
			GroupID:   img.GroupID,
			Path:      img.Path,
			Alt:       img.Alt,
			FocalX:    img.FocalX,
			FocalY:    img.FocalY,
			Artist:    img.Artist,
			ArtistURL: img.ArtistURL,
		}
	}
	return thumbnails, nil
}
