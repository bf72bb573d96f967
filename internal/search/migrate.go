package search

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TableName is the FTS5 table holding one entry per content row, keyed by rowid.
const TableName = "content_fts"

const createTableSQL = `CREATE VIRTUAL TABLE IF NOT EXISTS content_fts USING fts5(
	title,
	subtitle,
	body,
	hidden_body,
	tags
)`

// Migrate creates the full-text index table. It must run after the content schema exists.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "search.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying search index schema")
	}

	if err := db.WithContext(ctx).Exec(createTableSQL).Error; err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("search index migration failed")
		}
		return eris.Wrap(err, "creating full-text index table")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("search index migration complete")
	}

	return nil
}
