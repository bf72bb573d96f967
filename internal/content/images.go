package content

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"merfie/app/internal/multimap"
)

// ImagePaths points at the stored variants of one upload.
type ImagePaths struct {
	Full      string
	Content   string
	Thumbnail string
}

// ImageMetadata is display information shared by every variant of an upload.
type ImageMetadata struct {
	Alt       *string
	FocalX    *int
	FocalY    *int
	Artist    *string
	ArtistURL *string
}

// ImageGroup is one upload with its variants keyed by size.
type ImageGroup struct {
	GroupID string
	Sizes   map[ImageSize]Image
}

func (p ImagePaths) bySize() map[ImageSize]string {
	return map[ImageSize]string{
		SizeFull:      strings.TrimSpace(p.Full),
		SizeContent:   strings.TrimSpace(p.Content),
		SizeThumbnail: strings.TrimSpace(p.Thumbnail),
	}
}

func (p ImagePaths) validate() error {
	for size, path := range p.bySize() {
		if path == "" {
			return eris.Wrapf(ErrInvalidImage, "%s path is required", size)
		}
	}
	return nil
}

func (m ImageMetadata) validate() error {
	for axis, value := range map[string]*int{"x": m.FocalX, "y": m.FocalY} {
		if value != nil && (*value < 0 || *value > 100) {
			return eris.Wrapf(ErrInvalidImage, "focal %s must be between 0 and 100, got %d", axis, *value)
		}
	}
	return nil
}

// AddImages stores the three size variants of an upload under a fresh group id.
func (r *GormRepository) AddImages(ctx context.Context, id uint, paths ImagePaths, meta ImageMetadata) (string, error) {
	return r.storeImages(ctx, id, paths, meta, false)
}

// ReplaceImages drops every image of an item before storing the new upload.
func (r *GormRepository) ReplaceImages(ctx context.Context, id uint, paths ImagePaths, meta ImageMetadata) (string, error) {
	return r.storeImages(ctx, id, paths, meta, true)
}

func (r *GormRepository) storeImages(ctx context.Context, id uint, paths ImagePaths, meta ImageMetadata, replace bool) (string, error) {
	if err := paths.validate(); err != nil {
		return "", err
	}
	if err := meta.validate(); err != nil {
		return "", err
	}

	groupID := uuid.NewString()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := loadItem(tx, id, &item); err != nil {
			return err
		}

		if replace {
			if err := tx.Where("content_id = ?", id).Delete(&Image{}).Error; err != nil {
				return eris.Wrapf(err, "removing images of content %d", id)
			}
		}

		sizes := paths.bySize()
		rows := make([]Image, 0, len(sizes))
		for _, size := range []ImageSize{SizeFull, SizeContent, SizeThumbnail} {
			rows = append(rows, Image{
				GroupID:   groupID,
				ContentID: id,
				Size:      size,
				Path:      sizes[size],
				Alt:       meta.Alt,
				FocalX:    meta.FocalX,
				FocalY:    meta.FocalY,
				Artist:    meta.Artist,
				ArtistURL: meta.ArtistURL,
			})
		}

		if err := tx.Create(&rows).Error; err != nil {
			return eris.Wrapf(err, "inserting images for content %d", id)
		}
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"content_id": id, "group_id": groupID}, err, "storing images")
		return "", eris.Wrapf(err, "storing images for content %d", id)
	}

	return groupID, nil
}

// ImagesFor returns the uploads of an item in insertion order.
func (r *GormRepository) ImagesFor(ctx context.Context, id uint) ([]ImageGroup, error) {
	var rows []Image
	if err := r.db.WithContext(ctx).Where("content_id = ?", id).Order("id ASC").Find(&rows).Error; err != nil {
		r.logError(logrus.Fields{"content_id": id}, err, "listing images")
		return nil, eris.Wrapf(err, "listing images for content %d", id)
	}

	groupOf := func(img Image) string { return img.GroupID }
	grouped := multimap.GroupBy(rows, groupOf, func(img Image) Image { return img })

	groups := make([]ImageGroup, 0, len(grouped))
	for _, groupID := range multimap.Keys(rows, groupOf) {
		sizes := multimap.FirstBy(grouped[groupID], func(img Image) ImageSize { return img.Size })
		groups = append(groups, ImageGroup{GroupID: groupID, Sizes: sizes})
	}
	return groups, nil
}
