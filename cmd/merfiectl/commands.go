package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/urfave/cli/v3"

	"merfie/app/internal/app/bootstrap"
	"merfie/app/internal/config"
	"merfie/app/internal/content"
	applog "merfie/app/internal/log"
	"merfie/app/internal/search"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the content and search schemas",
		Action: func(ctx context.Context, c *cli.Command) error {
			core, err := openCore(ctx, c)
			if err != nil {
				return err
			}
			defer closeCore(core)

			fmt.Println(successStyle.Render("schema is up to date"))
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Run a search against the index",
		ArgsUsage: "[term...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Restrict results to one content type",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "1-based page number",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Results per page (0 uses the configured default)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			req := search.Request{
				Term:     searchTerm(c.Args().Slice()),
				Page:     c.Int("page"),
				PageSize: c.Int("page-size"),
			}
			if raw := c.String("type"); raw != "" {
				contentType, err := content.ParseContentType(raw)
				if err != nil {
					return err
				}
				req.ContentType = &contentType
			}

			core, err := openCore(ctx, c)
			if err != nil {
				return err
			}
			defer closeCore(core)

			page, err := core.Engine.Search(ctx, req)
			if err != nil {
				return eris.Wrap(err, "searching content")
			}

			fmt.Print(renderPage(req.Term, page))
			return nil
		},
	}
}

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the search index from stored content",
		Action: func(ctx context.Context, c *cli.Command) error {
			core, err := openCore(ctx, c)
			if err != nil {
				return err
			}
			defer closeCore(core)

			count, err := core.Index.Rebuild(ctx)
			if err != nil {
				return eris.Wrap(err, "rebuilding search index")
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("indexed %d items", count)))
			return nil
		},
	}
}

// searchTerm rebuilds the term from every positional word.
func searchTerm(args []string) string {
	return strings.Join(args, " ")
}

func openCore(ctx context.Context, c *cli.Command) (bootstrap.Core, error) {
	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return bootstrap.Core{}, eris.Wrap(err, "loading configuration")
	}
	if path := c.String("db"); path != "" {
		cfg.DBPath = path
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return bootstrap.Core{}, eris.Wrap(err, "initialising logger")
	}
	logger.SetOutput(os.Stderr)

	core, err := bootstrap.Open(ctx, bootstrap.Dependencies{Config: *cfg, Logger: logger})
	if err != nil {
		return bootstrap.Core{}, eris.Wrap(err, "opening content store")
	}
	return core, nil
}

func closeCore(core bootstrap.Core) {
	if err := core.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "closing database: %v\n", err)
	}
}
