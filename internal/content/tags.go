package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetTags replaces the full tag set of an item.
func (r *GormRepository) SetTags(ctx context.Context, id uint, labels []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := loadItem(tx, id, &item); err != nil {
			return err
		}
		return r.replaceTags(tx, id, labels)
	})
	if err != nil {
		r.logError(logrus.Fields{"content_id": id}, err, "setting tags")
		return eris.Wrapf(err, "setting tags for content %d", id)
	}
	return nil
}

// AttachTag associates a single label with an item, creating the tag when needed.
// Attaching a label that is already present is a no-op.
func (r *GormRepository) AttachTag(ctx context.Context, id uint, label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return ErrTagRequired
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := loadItem(tx, id, &item); err != nil {
			return err
		}

		tag, err := getOrCreateTag(tx, trimmed)
		if err != nil {
			return err
		}

		link := &ItemTag{ContentID: id, TagID: tag.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(link).Error; err != nil {
			return eris.Wrapf(err, "attaching tag %q to content %d", trimmed, id)
		}

		if err := r.indexer.RefreshTags(tx, id); err != nil {
			return &IndexError{ContentID: id, Op: "refresh tags", Err: err}
		}
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"content_id": id, "tag": trimmed}, err, "attaching tag")
		return eris.Wrapf(err, "attaching tag to content %d", id)
	}
	return nil
}

// DetachTag removes a label from an item. Unknown labels are ignored.
func (r *GormRepository) DetachTag(ctx context.Context, id uint, label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return ErrTagRequired
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := loadItem(tx, id, &item); err != nil {
			return err
		}

		var tag Tag
		if err := tx.First(&tag, "tag = ?", trimmed).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return eris.Wrapf(err, "loading tag %q", trimmed)
		}

		if err := tx.Where("content_id = ? AND tag_id = ?", id, tag.ID).Delete(&ItemTag{}).Error; err != nil {
			return eris.Wrapf(err, "detaching tag %q from content %d", trimmed, id)
		}

		if err := r.indexer.RefreshTags(tx, id); err != nil {
			return &IndexError{ContentID: id, Op: "refresh tags", Err: err}
		}
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"content_id": id, "tag": trimmed}, err, "detaching tag")
		return eris.Wrapf(err, "detaching tag from content %d", id)
	}
	return nil
}

// TagsFor returns the labels attached to an item in alphabetical order.
func (r *GormRepository) TagsFor(ctx context.Context, id uint) ([]string, error) {
	var labels []string
	err := r.db.WithContext(ctx).
		Table("content_tags").
		Joins("JOIN tags ON tags.id = content_tags.tag_id").
		Where("content_tags.content_id = ?", id).
		Order("tags.tag ASC").
		Pluck("tags.tag", &labels).Error
	if err != nil {
		r.logError(logrus.Fields{"content_id": id}, err, "listing item tags")
		return nil, eris.Wrapf(err, "listing tags for content %d", id)
	}
	return labels, nil
}

// ListTags returns every tag in use, optionally limited to items of one content type.
func (r *GormRepository) ListTags(ctx context.Context, contentType *ContentType) ([]Tag, error) {
	query := r.db.WithContext(ctx).Model(&Tag{}).Order("tags.tag ASC")
	if contentType != nil {
		query = query.
			Distinct("tags.id", "tags.tag", "tags.slug").
			Joins("JOIN content_tags ON content_tags.tag_id = tags.id").
			Joins("JOIN content ON content.id = content_tags.content_id").
			Where("content.content_type = ?", *contentType)
	}

	var tags []Tag
	if err := query.Find(&tags).Error; err != nil {
		r.logError(logrus.Fields{"content_type": contentType}, err, "listing tags")
		return nil, eris.Wrap(err, "listing tags")
	}
	return tags, nil
}

// replaceTags swaps the tag set of an item and refreshes its index entry on tx.
func (r *GormRepository) replaceTags(tx *gorm.DB, id uint, labels []string) error {
	if err := tx.Where("content_id = ?", id).Delete(&ItemTag{}).Error; err != nil {
		return eris.Wrapf(err, "clearing tags of content %d", id)
	}

	for _, label := range normaliseLabels(labels) {
		tag, err := getOrCreateTag(tx, label)
		if err != nil {
			return err
		}
		if err := tx.Create(&ItemTag{ContentID: id, TagID: tag.ID}).Error; err != nil {
			return eris.Wrapf(err, "linking tag %q to content %d", label, id)
		}
	}

	if err := r.indexer.RefreshTags(tx, id); err != nil {
		return &IndexError{ContentID: id, Op: "refresh tags", Err: err}
	}
	return nil
}

func getOrCreateTag(tx *gorm.DB, label string) (*Tag, error) {
	var tag Tag
	err := tx.First(&tag, "tag = ?", label).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, eris.Wrapf(err, "loading tag %q", label)
	}

	slug, err := uniqueTagSlug(tx, label)
	if err != nil {
		return nil, err
	}

	tag = Tag{Label: label, Slug: slug}
	if err := tx.Create(&tag).Error; err != nil {
		return nil, eris.Wrapf(err, "creating tag %q", label)
	}
	return &tag, nil
}

// uniqueTagSlug slugs label, suffixing a counter when labels differing only in case or
// punctuation already claimed the plain slug.
func uniqueTagSlug(tx *gorm.DB, label string) (string, error) {
	base := Slugify(label)
	if strings.Trim(base, "-") == "" {
		return "", eris.Wrapf(ErrInvalidSlug, "tag %q", label)
	}

	candidate := base
	for attempt := 2; ; attempt++ {
		var count int64
		if err := tx.Model(&Tag{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", eris.Wrapf(err, "checking tag slug %s", candidate)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
}

// normaliseLabels trims labels, drops empties and keeps the first occurrence of each.
func normaliseLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
