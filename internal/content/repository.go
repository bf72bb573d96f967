package content

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Indexer keeps the search index in step with content writes. Every method runs on the
// transaction of the write that triggered it; a returned error aborts that write.
type Indexer interface {
	Insert(tx *gorm.DB, item *Item) error
	Update(tx *gorm.DB, item *Item) error
	Delete(tx *gorm.DB, id uint) error
	RefreshTags(tx *gorm.DB, id uint) error
}

// Repository defines persistence operations for content items and their associations.
type Repository interface {
	Create(ctx context.Context, draft Draft) (*Item, error)
	Update(ctx context.Context, id uint, draft Draft) (*Item, error)
	Delete(ctx context.Context, id uint) error
	Get(ctx context.Context, id uint) (*Item, error)
	GetBySlug(ctx context.Context, slug string) (*Item, error)

	SetTags(ctx context.Context, id uint, labels []string) error
	AttachTag(ctx context.Context, id uint, label string) error
	DetachTag(ctx context.Context, id uint, label string) error
	TagsFor(ctx context.Context, id uint) ([]string, error)
	ListTags(ctx context.Context, contentType *ContentType) ([]Tag, error)

	AddImages(ctx context.Context, id uint, paths ImagePaths, meta ImageMetadata) (string, error)
	ReplaceImages(ctx context.Context, id uint, paths ImagePaths, meta ImageMetadata) (string, error)
	ImagesFor(ctx context.Context, id uint) ([]ImageGroup, error)

	GetOrCreateSystem(ctx context.Context, name string) (*System, error)
	ListSystems(ctx context.Context) ([]System, error)
	CampaignDetailsFor(ctx context.Context, id uint) (*CampaignDetails, error)
}

// Draft carries the editable fields of an item.
type Draft struct {
	ContentType ContentType
	Title       string
	Subtitle    *string
	Body        *string
	HiddenBody  *string
	Published   bool
	// Tags replaces the item's tag set when non-nil; nil leaves associations untouched.
	Tags     []string
	Campaign *CampaignDraft
}

// CampaignDraft carries the campaign-only fields of a draft.
type CampaignDraft struct {
	SystemID uint
	Status   string
}

// GormRepository persists content using a Gorm database connection. Every mutation runs in
// a single transaction together with the matching search index update.
type GormRepository struct {
	db      *gorm.DB
	indexer Indexer
	logger  *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, indexer Indexer, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	if indexer == nil {
		return nil, eris.New("search indexer is required")
	}

	return &GormRepository{db: db, indexer: indexer, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// Create inserts a new item, its index entry, and optional tags and campaign details.
func (r *GormRepository) Create(ctx context.Context, draft Draft) (*Item, error) {
	if !draft.ContentType.Valid() {
		return nil, eris.Wrapf(ErrInvalidContentType, "creating content of type %q", draft.ContentType)
	}

	title, slug, err := titleAndSlug(draft.Title)
	if err != nil {
		return nil, err
	}

	item := &Item{
		ContentType: draft.ContentType,
		Slug:        slug,
		Title:       title,
		Subtitle:    draft.Subtitle,
		Body:        draft.Body,
		HiddenBody:  draft.HiddenBody,
		Published:   draft.Published,
	}
	if draft.Published {
		now := time.Now().UTC()
		item.PublishedAt = &now
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureSlugAvailable(tx, slug, 0); err != nil {
			return err
		}

		if err := tx.Create(item).Error; err != nil {
			if isUniqueViolation(err) {
				return eris.Wrapf(ErrSlugTaken, "creating content: %s", slug)
			}
			return eris.Wrapf(err, "inserting content: %s", slug)
		}

		if err := r.indexer.Insert(tx, item); err != nil {
			return &IndexError{ContentID: item.ID, Op: "insert", Err: err}
		}

		if draft.Tags != nil {
			if err := r.replaceTags(tx, item.ID, draft.Tags); err != nil {
				return err
			}
		}

		return saveCampaignDetails(tx, item, draft.Campaign)
	})
	if err != nil {
		r.logError(logrus.Fields{"slug": slug, "content_type": draft.ContentType}, err, "creating content")
		return nil, eris.Wrapf(err, "creating content: %s", slug)
	}

	return item, nil
}

// Update rewrites an item's fields. A changed slug leaves the previous one behind as an alias.
// The content type of an existing item never changes.
func (r *GormRepository) Update(ctx context.Context, id uint, draft Draft) (*Item, error) {
	title, slug, err := titleAndSlug(draft.Title)
	if err != nil {
		return nil, err
	}

	var item Item
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadItem(tx, id, &item); err != nil {
			return err
		}

		if item.Slug != slug {
			if err := ensureSlugAvailable(tx, slug, id); err != nil {
				return err
			}
			if err := recordAlias(tx, &item); err != nil {
				return err
			}
			if err := tx.Where("slug = ? AND content_id = ?", slug, id).Delete(&Alias{}).Error; err != nil {
				return eris.Wrapf(err, "clearing alias %s", slug)
			}
		}

		item.Slug = slug
		item.Title = title
		item.Subtitle = draft.Subtitle
		item.Body = draft.Body
		item.HiddenBody = draft.HiddenBody
		item.Published = draft.Published
		// PublishedAt marks the start of the current publication.
		switch {
		case !draft.Published:
			item.PublishedAt = nil
		case item.PublishedAt == nil:
			now := time.Now().UTC()
			item.PublishedAt = &now
		}

		if err := tx.Save(&item).Error; err != nil {
			if isUniqueViolation(err) {
				return eris.Wrapf(ErrSlugTaken, "renaming content %d to %s", id, slug)
			}
			return eris.Wrapf(err, "saving content %d", id)
		}

		if err := r.indexer.Update(tx, &item); err != nil {
			return &IndexError{ContentID: id, Op: "update", Err: err}
		}

		if draft.Tags != nil {
			if err := r.replaceTags(tx, id, draft.Tags); err != nil {
				return err
			}
		}

		return saveCampaignDetails(tx, &item, draft.Campaign)
	})
	if err != nil {
		r.logError(logrus.Fields{"content_id": id, "slug": slug}, err, "updating content")
		return nil, eris.Wrapf(err, "updating content %d", id)
	}

	return &item, nil
}

// Delete removes an item together with its associations and index entry.
func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := loadItem(tx, id, &item); err != nil {
			return err
		}

		dependents := []struct {
			model any
			label string
		}{
			{&ItemTag{}, "tag associations"},
			{&Image{}, "images"},
			{&Alias{}, "aliases"},
			{&CampaignDetails{}, "campaign details"},
		}
		for _, dependent := range dependents {
			if err := tx.Where("content_id = ?", id).Delete(dependent.model).Error; err != nil {
				return eris.Wrapf(err, "deleting %s of content %d", dependent.label, id)
			}
		}

		if err := r.indexer.Delete(tx, id); err != nil {
			return &IndexError{ContentID: id, Op: "delete", Err: err}
		}

		if err := tx.Delete(&Item{}, id).Error; err != nil {
			return eris.Wrapf(err, "deleting content %d", id)
		}

		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"content_id": id}, err, "deleting content")
		return eris.Wrapf(err, "deleting content %d", id)
	}

	return nil
}

// Get returns the item with the provided id or nil when it does not exist.
func (r *GormRepository) Get(ctx context.Context, id uint) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"content_id": id}, err, "fetching content by id")
		return nil, eris.Wrapf(err, "fetching content %d", id)
	}

	return &item, nil
}

// GetBySlug returns the item owning slug, falling back to items that previously used it.
// It returns nil when neither matches.
func (r *GormRepository) GetBySlug(ctx context.Context, slug string) (*Item, error) {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return nil, eris.New("slug is required")
	}

	db := r.db.WithContext(ctx)

	var item Item
	err := db.First(&item, "slug = ?", trimmed).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		r.logError(logrus.Fields{"slug": trimmed}, err, "fetching content by slug")
		return nil, eris.Wrapf(err, "fetching content by slug: %s", trimmed)
	}

	var alias Alias
	err = db.Order("content_type ASC").First(&alias, "slug = ?", trimmed).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": trimmed}, err, "fetching content alias")
		return nil, eris.Wrapf(err, "fetching content alias: %s", trimmed)
	}

	return r.Get(ctx, alias.ContentID)
}

// CampaignDetailsFor returns the campaign columns of an item, or nil when it has none.
func (r *GormRepository) CampaignDetailsFor(ctx context.Context, id uint) (*CampaignDetails, error) {
	var details CampaignDetails
	err := r.db.WithContext(ctx).First(&details, "content_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"content_id": id}, err, "fetching campaign details")
		return nil, eris.Wrapf(err, "fetching campaign details for content %d", id)
	}

	return &details, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func titleAndSlug(raw string) (string, string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", "", ErrTitleRequired
	}

	slug := Slugify(title)
	if slug == "" || strings.Trim(slug, "-") == "" {
		return "", "", eris.Wrapf(ErrInvalidSlug, "title %q", title)
	}

	return title, slug, nil
}

func loadItem(tx *gorm.DB, id uint, item *Item) error {
	if err := tx.First(item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return eris.Wrapf(ErrNotFound, "content %d", id)
		}
		return eris.Wrapf(err, "loading content %d", id)
	}
	return nil
}

func ensureSlugAvailable(tx *gorm.DB, slug string, ownerID uint) error {
	var count int64
	if err := tx.Model(&Item{}).Where("slug = ? AND id <> ?", slug, ownerID).Count(&count).Error; err != nil {
		return eris.Wrapf(err, "checking slug availability: %s", slug)
	}
	if count > 0 {
		return eris.Wrapf(ErrSlugTaken, "slug %s", slug)
	}
	return nil
}

func recordAlias(tx *gorm.DB, item *Item) error {
	var existing int64
	if err := tx.Model(&Alias{}).Where("slug = ?", item.Slug).Count(&existing).Error; err != nil {
		return eris.Wrapf(err, "checking alias %s", item.Slug)
	}
	if existing > 0 {
		return nil
	}

	alias := &Alias{Slug: item.Slug, ContentType: item.ContentType, ContentID: item.ID}
	if err := tx.Create(alias).Error; err != nil {
		return eris.Wrapf(err, "recording alias %s for content %d", item.Slug, item.ID)
	}
	return nil
}

func saveCampaignDetails(tx *gorm.DB, item *Item, draft *CampaignDraft) error {
	if draft == nil {
		return nil
	}
	if item.ContentType != TypeCampaign {
		return eris.Wrapf(ErrCampaignOnly, "content %d is a %s", item.ID, item.ContentType)
	}

	status := strings.TrimSpace(draft.Status)
	if status == "" {
		status = DefaultCampaignStatus
	}

	details := &CampaignDetails{ContentID: item.ID, SystemID: draft.SystemID, Status: status}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"system_id", "status"}),
	}).Create(details).Error
	if err != nil {
		return eris.Wrapf(err, "saving campaign details for content %d", item.ID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique")
}
