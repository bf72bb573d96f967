package search

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"merfie/app/internal/content"
)

const rebuildBatchSize = 200

// Entry is the indexed text of one content row.
type Entry struct {
	ContentID  uint
	Title      string
	Subtitle   string
	Body       string
	HiddenBody string
	Tags       string
}

// Index maintains content_fts on the write path. Every method that takes a *gorm.DB runs on
// the caller's open transaction.
type Index struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewIndex constructs an index maintainer over db.
func NewIndex(db *gorm.DB, logger *logrus.Logger) (*Index, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	return &Index{db: db, logger: logger}, nil
}

var _ content.Indexer = (*Index)(nil)

// Insert creates the entry for a freshly inserted item with an empty tags column.
func (i *Index) Insert(tx *gorm.DB, item *content.Item) error {
	err := tx.Exec(
		`INSERT INTO content_fts(rowid, title, subtitle, body, hidden_body, tags) VALUES (?, ?, ?, ?, ?, '')`,
		item.ID, item.Title, deref(item.Subtitle), deref(item.Body), deref(item.HiddenBody),
	).Error
	if err != nil {
		return eris.Wrapf(err, "inserting index entry %d", item.ID)
	}
	return nil
}

// Update overwrites the text columns of an entry. The tags column is left alone.
func (i *Index) Update(tx *gorm.DB, item *content.Item) error {
	result := tx.Exec(
		`UPDATE content_fts SET title = ?, subtitle = ?, body = ?, hidden_body = ? WHERE rowid = ?`,
		item.Title, deref(item.Subtitle), deref(item.Body), deref(item.HiddenBody), item.ID,
	)
	if result.Error != nil {
		return eris.Wrapf(result.Error, "updating index entry %d", item.ID)
	}
	if result.RowsAffected == 0 {
		return eris.Errorf("index entry %d is missing", item.ID)
	}
	return nil
}

// Delete removes the entry of a content row.
func (i *Index) Delete(tx *gorm.DB, id uint) error {
	if err := tx.Exec(`DELETE FROM content_fts WHERE rowid = ?`, id).Error; err != nil {
		return eris.Wrapf(err, "deleting index entry %d", id)
	}
	return nil
}

// RefreshTags recomputes the tags column from the current associations, space-joined in
// the order they were attached.
func (i *Index) RefreshTags(tx *gorm.DB, id uint) error {
	var labels []string
	err := tx.Table("content_tags").
		Joins("JOIN tags ON tags.id = content_tags.tag_id").
		Where("content_tags.content_id = ?", id).
		Order("content_tags.rowid ASC").
		Pluck("tags.tag", &labels).Error
	if err != nil {
		return eris.Wrapf(err, "loading tags for index entry %d", id)
	}

	result := tx.Exec(`UPDATE content_fts SET tags = ? WHERE rowid = ?`, strings.Join(labels, " "), id)
	if result.Error != nil {
		return eris.Wrapf(result.Error, "updating tags of index entry %d", id)
	}
	if result.RowsAffected == 0 {
		return eris.Errorf("index entry %d is missing", id)
	}
	return nil
}

// Entry returns the indexed text of a content row, or nil when it has no entry.
func (i *Index) Entry(ctx context.Context, id uint) (*Entry, error) {
	var entry Entry
	result := i.db.WithContext(ctx).Raw(
		`SELECT rowid AS content_id, title, subtitle, body, hidden_body, tags FROM content_fts WHERE rowid = ?`, id,
	).Scan(&entry)
	if result.Error != nil {
		i.logError(logrus.Fields{"content_id": id}, result.Error, "reading index entry")
		return nil, eris.Wrapf(result.Error, "reading index entry %d", id)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &entry, nil
}

// Rebuild discards every entry and reindexes all content rows in one transaction.
// It returns the number of rows indexed.
func (i *Index) Rebuild(ctx context.Context) (int, error) {
	logFields := logrus.Fields{"component": "search.rebuild"}
	indexed := 0

	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM content_fts`).Error; err != nil {
			return eris.Wrap(err, "clearing index")
		}

		var batch []content.Item
		result := tx.FindInBatches(&batch, rebuildBatchSize, func(_ *gorm.DB, _ int) error {
			for idx := range batch {
				if err := i.Insert(tx, &batch[idx]); err != nil {
					return err
				}
				if err := i.RefreshTags(tx, batch[idx].ID); err != nil {
					return err
				}
			}
			indexed += len(batch)
			return nil
		})
		return result.Error
	})
	if err != nil {
		i.logError(logFields, err, "rebuilding search index")
		return 0, eris.Wrap(err, "rebuilding search index")
	}

	if i.logger != nil {
		i.logger.WithFields(logFields).WithField("indexed", indexed).Info("search index rebuilt")
	}
	return indexed, nil
}

func (i *Index) logError(fields logrus.Fields, err error, message string) {
	if i.logger == nil || err == nil {
		return
	}

	entry := i.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
