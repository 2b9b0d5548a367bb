package main

import (
	"context"
	"embed"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/tokensnap/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env := config.Load()

	app := &cli.App{
		Name:  "tokensnap",
		Usage: "Unwrap, reconcile and rank token holdings of a chain snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: env.LogLevel.String(),
			},
			&cli.StringFlag{
				Name:    "workspace",
				Aliases: []string{"w"},
				Usage:   "directory holding the snapshot inputs and outputs",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "snapshot config file (default: <workspace>/config.json)",
			},
		},
		Before: func(c *cli.Context) error {
			setupLogger(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			decodeCommand,
			unwrapCommand,
			reportCommand,
			runCommand(env),
			fetchCommand(env),
			runsCommand(env),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("tokensnap failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) {
	lvl, ok := config.ParseLevel(level)
	if !ok {
		slog.Warn("invalid log level, using info", "value", level)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
