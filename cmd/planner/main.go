package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/postgres"
	"github.com/andresuchdata/autopo-py/replenishment/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type dbKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newScopeFlags() []cli.Flag {
	return []cli.Flag{
		newDBURLFlag(),
		&cli.StringFlag{
			Name:     "org",
			Usage:    "Organization id",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "store",
			Usage:    "Store id",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "Plan date (YYYY-MM-DD), defaults to today",
		},
	}
}

func newPayloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "json", Usage: "Payload as a JSON array"},
		&cli.StringFlag{Name: "file", Usage: "Read the JSON array from this file"},
	}
}

func initDB(c *cli.Context) error {
	// Initialize database connection
	db, err := sqlx.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, dbKey{}, postgres.Wrap(db, c.Int64("max-concurrent-tx")))
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey{}).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(c *cli.Context) (*postgres.DB, error) {
	db, ok := c.Context.Value(dbKey{}).(*postgres.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "planner",
		Usage: "Generate and manage replenishment plans",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.Int64Flag{
				Name:    "max-concurrent-tx",
				Usage:   "Maximum number of concurrent database transactions",
				Value:   10,
				EnvVars: []string{"DB_MAX_CONCURRENT_TX"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending schema migrations",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "generate",
				Usage: "Generate the replenishment plan of a store",
				Flags: append(newScopeFlags(),
					&cli.BoolFlag{
						Name:  "persist",
						Usage: "Save the plan as the store's draft for the date",
					},
					&cli.BoolFlag{
						Name:  "export",
						Usage: "Upload the saved plan to object storage (implies --persist)",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the plan as CSV to this file",
					},
					&cli.IntFlag{
						Name:    "concurrency",
						Usage:   "Number of products calculated at once",
						Value:   8,
						EnvVars: []string{"PLANNER_CONCURRENCY"},
					},
				),
				Before: initDB,
				After:  closeDB,
				Action: runGenerate,
			},
			{
				Name:  "export",
				Usage: "Export a saved plan to object storage or a local CSV file",
				Flags: append(newScopeFlags(),
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the plan to this file instead of object storage",
					},
				),
				Before: initDB,
				After:  closeDB,
				Action: runExport,
			},
			{
				Name:   "approve",
				Usage:  "Approve a draft plan",
				Flags:  newScopeFlags(),
				Before: initDB,
				After:  closeDB,
				Action: runApprove,
			},
			{
				Name:  "rules",
				Usage: "Manage replenishment rules",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "Add a rule scoped to any of store, category or product",
						Flags: []cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "org", Usage: "Organization id", Required: true},
							&cli.StringFlag{Name: "store", Usage: "Store scope"},
							&cli.StringFlag{Name: "category", Usage: "Category scope"},
							&cli.StringFlag{Name: "product", Usage: "Product scope"},
							&cli.IntFlag{Name: "priority", Usage: "Priority among rules of the same scope"},
							&cli.StringFlag{
								Name:  "params",
								Usage: `Rule parameters as JSON, e.g. {"days_of_cover":14,"pack_size":6}`,
								Value: "{}",
							},
						},
						Before: initDB,
						After:  closeDB,
						Action: runAddRule,
					},
					{
						Name:  "invalidate",
						Usage: "Drop cached rule sets so the next plan reads them from the database",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "org", Usage: "Organization whose rule set is dropped"},
							&cli.BoolFlag{Name: "all", Usage: "Drop the rule sets of every organization"},
						},
						Action: runInvalidateRules,
					},
				},
			},
			{
				Name:  "products",
				Usage: "Manage the product catalog",
				Subcommands: []*cli.Command{
					{
						Name:  "upsert",
						Usage: `Insert or update products, e.g. --json '[{"id":"p1","name":"Rose","category_id":"flowers"}]'`,
						Flags: append([]cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "org", Usage: "Organization id", Required: true},
						}, newPayloadFlags()...),
						Before: initDB,
						After:  closeDB,
						Action: runUpsertProducts,
					},
				},
			},
			{
				Name:  "snapshots",
				Usage: "Record inventory stock counts",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: `Save stock counts, e.g. --json '[{"product_id":"p1","date":"2025-03-19","physical_stock":42}]'`,
						Flags: append([]cli.Flag{
							newDBURLFlag(),
							&cli.StringFlag{Name: "org", Usage: "Organization id", Required: true},
							&cli.StringFlag{Name: "store", Usage: "Store id for entries without store_id"},
						}, newPayloadFlags()...),
						Before: initDB,
						After:  closeDB,
						Action: runAddSnapshots,
					},
				},
			},
			{
				Name:  "exports",
				Usage: "Browse plans exported to object storage",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List the exported plans of a store, newest first",
						Flags:  newScopeFlags()[:3],
						Before: initDB,
						After:  closeDB,
						Action: runListExports,
					},
					{
						Name:  "download",
						Usage: "Download an exported plan CSV",
						Flags: append(newScopeFlags(),
							&cli.StringFlag{Name: "out", Usage: "Destination file", Required: true},
						),
						Before: initDB,
						After:  closeDB,
						Action: runDownloadExport,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("planner failed")
	}
}
