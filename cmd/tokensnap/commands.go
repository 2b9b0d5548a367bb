package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/tokensnap/internal/config"
	"github.com/mtlprog/tokensnap/internal/database"
	"github.com/mtlprog/tokensnap/internal/domain"
	"github.com/mtlprog/tokensnap/internal/export"
	"github.com/mtlprog/tokensnap/internal/gateway"
	"github.com/mtlprog/tokensnap/internal/pipeline"
	"github.com/mtlprog/tokensnap/internal/snapshot"
)

var (
	outfileFlag = &cli.StringFlag{
		Name:  "outfile",
		Usage: "text ranking output (default: <workspace>/ranking.txt)",
	}
	xlsxFlag = &cli.StringFlag{
		Name:  "xlsx",
		Usage: "also write the ranking and checkpoints to this workbook",
	}
)

var decodeCommand = &cli.Command{
	Name:  "decode",
	Usage: "Summarize contract state and decode token attributes",
	Action: func(c *cli.Context) error {
		p, err := newPipeline(c)
		if err != nil {
			return err
		}
		return p.Decode(c.Context)
	},
}

var unwrapCommand = &cli.Command{
	Name:  "unwrap",
	Usage: "Unwrap every holding to base token and check conservation",
	Action: func(c *cli.Context) error {
		p, err := newPipeline(c)
		if err != nil {
			return err
		}
		_, err = p.Unwrap(c.Context)
		return err
	},
}

var reportCommand = &cli.Command{
	Name:  "report",
	Usage: "Rank accounts by unwrapped total",
	Flags: []cli.Flag{outfileFlag, xlsxFlag},
	Action: func(c *cli.Context) error {
		p, err := newPipeline(c)
		if err != nil {
			return err
		}
		report, err := p.Report(c.Context, c.String(outfileFlag.Name))
		if err != nil {
			return err
		}
		if c.String(xlsxFlag.Name) == "" {
			return nil
		}
		rec, err := p.LoadReconciliation()
		if err != nil {
			return err
		}
		s := export.Snapshot{At: time.Now(), Result: pipeline.Result{Reconciliation: rec, Report: report}}
		return export.NewXLSXWriter(c.String(xlsxFlag.Name)).Write(c.Context, s)
	},
}

func runCommand(env config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run decode, unwrap and report, then export and store the result",
		Flags: []cli.Flag{
			outfileFlag,
			xlsxFlag,
			&cli.StringFlag{
				Name:  "database-url",
				Usage: "store the run in PostgreSQL",
				Value: env.DatabaseURL,
			},
			&cli.StringFlag{
				Name:  "sheet-id",
				Usage: "write the run to this Google spreadsheet",
				Value: env.SheetsID,
			},
			&cli.StringFlag{
				Name:  "label",
				Usage: "name of the run in the database and sheets",
				Value: "snapshot",
			},
		},
		Action: func(c *cli.Context) error {
			p, err := newPipeline(c)
			if err != nil {
				return err
			}
			res, err := p.Run(c.Context, c.String(outfileFlag.Name))
			if err != nil {
				return err
			}

			s := export.Snapshot{Label: c.String("label"), At: time.Now(), Result: res}
			var writers []export.Writer
			if path := c.String(xlsxFlag.Name); path != "" {
				writers = append(writers, export.NewXLSXWriter(path))
			}
			if id := c.String("sheet-id"); id != "" {
				if env.GoogleCredentialsJSON == "" {
					return errors.New("GOOGLE_CREDENTIALS_JSON is required with --sheet-id")
				}
				w, err := export.NewSheetsWriter(c.Context, id, env.GoogleCredentialsJSON)
				if err != nil {
					return err
				}
				writers = append(writers, w)
			}
			for _, w := range writers {
				if err := w.Write(c.Context, s); err != nil {
					return fmt.Errorf("exporting run: %w", err)
				}
			}

			if url := c.String("database-url"); url != "" {
				return saveRun(c.Context, url, s.Label, res)
			}
			return nil
		},
	}
}

func saveRun(ctx context.Context, databaseURL, label string, res pipeline.Result) error {
	svc, closeDB, err := openRunStore(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer closeDB()

	_, err = svc.Save(ctx, label, res)
	return err
}

// openRunStore connects to PostgreSQL and applies pending migrations.
func openRunStore(ctx context.Context, databaseURL string) (*snapshot.Service, func(), error) {
	pool, err := database.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("opening migrations: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return snapshot.NewService(snapshot.NewPgRepository(pool)), pool.Close, nil
}

func runsCommand(env config.Config) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List stored runs, or print the ranking of one run",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "database-url",
				Usage: "PostgreSQL the runs were stored in",
				Value: env.DatabaseURL,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "number of runs to list",
				Value: 30,
			},
			&cli.Int64Flag{
				Name:  "id",
				Usage: "print the ranking of this run",
			},
			&cli.StringFlag{
				Name:  "label",
				Usage: "print the ranking of the latest run with this label",
			},
			&cli.IntFlag{
				Name:  "decimals",
				Usage: "decimals of the base token when formatting totals",
				Value: domain.DefaultDecimals,
			},
		},
		Action: func(c *cli.Context) error {
			url := c.String("database-url")
			if url == "" {
				return errors.New("DATABASE_URL or --database-url is required")
			}
			svc, closeDB, err := openRunStore(c.Context, url)
			if err != nil {
				return err
			}
			defer closeDB()

			decimals := int32(c.Int("decimals"))
			var lines []string
			if id, label := c.Int64("id"), c.String("label"); id != 0 || label != "" {
				entries, err := svc.Ranking(c.Context, id, label)
				if err != nil {
					return err
				}
				lines = snapshot.EntryLines(entries, decimals)
			} else {
				runs, err := svc.List(c.Context, c.Int("limit"))
				if err != nil {
					return err
				}
				lines = snapshot.RunLines(runs, decimals)
			}

			for _, line := range lines {
				fmt.Fprintln(c.App.Writer, line)
			}
			return nil
		},
	}
}

func fetchCommand(env config.Config) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Export contract state and account holdings from a gateway into the workspace",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "gateway base URL",
				Value: env.GatewayURL,
			},
			&cli.Uint64Flag{
				Name:     "block-nonce",
				Usage:    "block nonce to read state at",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "address",
				Usage: "account to include (repeatable); known contracts are always included",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadSnapshotConfig(c)
			if err != nil {
				return err
			}
			nonce := c.Uint64("block-nonce")
			client := gateway.NewClient(c.String("gateway"), env.GatewayRetryMax, env.GatewayRetryBaseDelay)
			p := pipeline.New(c.String("workspace"), cfg, gateway.NewStateProvider(client, nonce))
			return p.Fetch(c.Context, client, nonce, c.StringSlice("address"))
		},
	}
}

func newPipeline(c *cli.Context) (*pipeline.Pipeline, error) {
	cfg, err := loadSnapshotConfig(c)
	if err != nil {
		return nil, err
	}
	return pipeline.New(c.String("workspace"), cfg, nil), nil
}

func loadSnapshotConfig(c *cli.Context) (*config.SnapshotConfig, error) {
	path := c.String("config")
	if path == "" {
		path = filepath.Join(c.String("workspace"), "config.json")
	}
	return config.LoadSnapshot(path)
}
