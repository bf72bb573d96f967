package search

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"merfie/app/internal/content"
)

// DefaultPageSize applies when neither the request nor the engine configuration sets one.
const DefaultPageSize = 18

// Query stages reported by QueryError.
const (
	StageRanked     = "ranked"
	StageListing    = "listing"
	StageTags       = "tags"
	StageThumbnails = "thumbnails"
)

// QueryError reports a store failure while serving a search.
type QueryError struct {
	Stage string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("search %s query: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Request selects one page of content. A blank Term lists content newest first.
type Request struct {
	ContentType *content.ContentType
	Term        string
	Page        int
	PageSize    int
}

// Summary is one result row with its tags and optional thumbnail.
type Summary struct {
	ID          uint                `json:"id"`
	ContentType content.ContentType `json:"contentType"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	Subtitle    *string             `json:"subtitle,omitempty"`
	Published   bool                `json:"published"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Tags        []string            `json:"tags"`
	Image       *Thumbnail          `json:"image"`
}

// Page is one page of search results.
type Page struct {
	Results    []Summary `json:"results"`
	TotalCount int64     `json:"totalCount"`
	TotalPages int64     `json:"totalPages"`
	Page       int       `json:"page"`
}

// Engine runs ranked and chronological content queries and decorates the page with
// associations.
type Engine struct {
	db              *gorm.DB
	aggregator      Aggregator
	logger          *logrus.Logger
	sentryHub       *sentry.Hub
	defaultPageSize int
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithDefaultPageSize overrides the page size used when a request leaves it unset.
func WithDefaultPageSize(size int) EngineOption {
	return func(e *Engine) {
		if size > 0 {
			e.defaultPageSize = size
		}
	}
}

// WithSentryHub reports query failures to hub.
func WithSentryHub(hub *sentry.Hub) EngineOption {
	return func(e *Engine) {
		e.sentryHub = hub
	}
}

// NewEngine wires the query engine with its dependencies.
func NewEngine(db *gorm.DB, aggregator Aggregator, logger *logrus.Logger, opts ...EngineOption) (*Engine, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	if aggregator == nil {
		return nil, eris.New("search aggregator is required")
	}

	engine := &Engine{
		db:              db,
		aggregator:      aggregator,
		logger:          logger,
		defaultPageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

type summaryRow struct {
	ID          uint
	ContentType content.ContentType
	Slug        string
	Title       string
	Subtitle    *string
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TotalCount  int64
}

const summaryColumns = `c.id, c.content_type, c.slug, c.title, c.subtitle, c.published, c.created_at, c.updated_at,
	COUNT(*) OVER() AS total_count`

// Search returns one page of matching content.
func (e *Engine) Search(ctx context.Context, req Request) (*Page, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = e.defaultPageSize
	}
	// An offset past math.MaxInt cannot address a row.
	if page-1 > math.MaxInt/pageSize {
		return &Page{Results: []Summary{}, Page: page}, nil
	}
	offset := (page - 1) * pageSize

	typeFilter := Condition{}
	if req.ContentType != nil {
		typeFilter = Eq("c.content_type", *req.ContentType)
	}

	var (
		query string
		args  []any
		stage string
	)
	if expr, ok := MatchExpression(req.Term); ok {
		stage = StageRanked
		where, whereArgs := And(Match(TableName, expr), typeFilter).Where()
		query = `SELECT ` + summaryColumns + `
	FROM content_fts JOIN content c ON c.id = content_fts.rowid
	` + where + `
	ORDER BY content_fts.rank
	LIMIT ? OFFSET ?`
		args = append(whereArgs, pageSize, offset)
	} else {
		stage = StageListing
		where, whereArgs := typeFilter.Where()
		query = `SELECT ` + summaryColumns + `
	FROM content c
	` + where + `
	ORDER BY c.created_at DESC, c.id DESC
	LIMIT ? OFFSET ?`
		args = append(whereArgs, pageSize, offset)
	}

	fields := logrus.Fields{"term": req.Term, "page": page, "page_size": pageSize, "stage": stage}

	var rows []summaryRow
	if err := e.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		queryErr := &QueryError{Stage: stage, Err: err}
		e.recordError(fields, queryErr, "running search query")
		return nil, queryErr
	}

	if len(rows) == 0 {
		return &Page{Results: []Summary{}, Page: page}, nil
	}

	ids := make([]uint, len(rows))
	for idx, row := range rows {
		ids[idx] = row.ID
	}

	var (
		tags       map[uint][]string
		thumbnails map[uint]Thumbnail
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		tags, err = e.aggregator.Tags(groupCtx, ids)
		if err != nil {
			return &QueryError{Stage: StageTags, Err: err}
		}
		return nil
	})
	group.Go(func() error {
		var err error
		thumbnails, err = e.aggregator.Thumbnails(groupCtx, ids)
		if err != nil {
			return &QueryError{Stage: StageThumbnails, Err: err}
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		e.recordError(fields, err, "aggregating search results")
		return nil, err
	}

	results := make([]Summary, len(rows))
	for idx, row := range rows {
		labels := tags[row.ID]
		if labels == nil {
			labels = []string{}
		}

		var image *Thumbnail
		if thumb, ok := thumbnails[row.ID]; ok {
			image = &thumb
		}

		results[idx] = Summary{
			ID:          row.ID,
			ContentType: row.ContentType,
			Slug:        row.Slug,
			Title:       row.Title,
			Subtitle:    row.Subtitle,
			Published:   row.Published,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
			Tags:        labels,
			Image:       image,
		}
	}

	total := rows[0].TotalCount
	return &Page{
		Results:    results,
		TotalCount: total,
		TotalPages: TotalPages(total, pageSize),
		Page:       page,
	}, nil
}

// TotalPages is the number of pages of size pageSize needed to hold total rows.
func TotalPages(total int64, pageSize int) int64 {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	size := int64(pageSize)
	return (total + size - 1) / size
}

func (e *Engine) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if e.logger != nil {
		entry := e.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if e.sentryHub != nil {
		e.sentryHub.CaptureException(err)
	}
}
