package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()

	app := &cli.Command{
		Name:  "merfiectl",
		Usage: "Maintain and query the Merfie content search index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "TOML configuration file overriding environment settings",
				Sources: cli.EnvVars("MERFIE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path (overrides configuration)",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(),
			searchCommand(),
			reindexCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
