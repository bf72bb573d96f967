package bootstrap

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"merfie/app/internal/config"
	"merfie/app/internal/content"
	"merfie/app/internal/db"
	apphttp "merfie/app/internal/http"
	"merfie/app/internal/search"
)

const slowQueryThreshold = 200 * time.Millisecond

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// Core holds the storage and search components shared by the server and the CLI.
type Core struct {
	Database   *gorm.DB
	Repository *content.GormRepository
	Index      *search.Index
	Engine     *search.Engine
	Cleanup    func() error
}

type Result struct {
	Core
	HTTPServer *apphttp.Server
}

// Open connects to the database, applies the content and search schemas and wires the
// repository to the index maintainer and the query engine.
func Open(ctx context.Context, deps Dependencies) (Core, error) {
	options := db.Options{Path: deps.Config.DBPath}
	if deps.Logger != nil {
		options.Logger = gormlogger.New(deps.Logger, gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	database, err := db.Open(options)
	if err != nil {
		return Core{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Core, error) {
		if closeErr := db.Close(database); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Core{}, wrapper
	}

	if err := content.Migrate(ctx, database, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running content migrations"))
	}
	if err := search.Migrate(ctx, database, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running search migrations"))
	}

	index, err := search.NewIndex(database, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating search index"))
	}

	repo, err := content.NewRepository(database, index, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating content repository"))
	}

	aggregator, err := search.NewAggregator(database)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating search aggregator"))
	}

	engine, err := search.NewEngine(database, aggregator, deps.Logger,
		search.WithDefaultPageSize(deps.Config.SearchPageSize),
		search.WithSentryHub(deps.SentryHub),
	)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating search engine"))
	}

	return Core{
		Database:   database,
		Repository: repo,
		Index:      index,
		Engine:     engine,
		Cleanup: func() error {
			return db.Close(database)
		},
	}, nil
}

// Build composes the full application including the HTTP transport.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	core, err := Open(ctx, deps)
	if err != nil {
		return Result{}, err
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Searcher:  core.Engine,
		Content:   core.Repository,
		Database:  core.Database,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		if closeErr := core.Cleanup(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, eris.Wrap(err, "initialising http server")
	}

	cleanup := core.Cleanup
	core.Cleanup = func() error {
		httpServer.Close()
		return cleanup()
	}

	return Result{Core: core, HTTPServer: httpServer}, nil
}
