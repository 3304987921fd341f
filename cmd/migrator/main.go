package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/lmittmann/tint"
	"github.com/peterbourgon/ff/v3"

	"github.com/vancomm/minesweeper/internal/config"
	"github.com/vancomm/minesweeper/internal/database"
)

type options struct {
	databaseURL string
	down        bool
	steps       int
}

// parseOptions reads flags, falling back to MIGRATOR_* env variables.
func parseOptions(args []string) (*options, error) {
	var opts options
	fs := flag.NewFlagSet("migrator", flag.ContinueOnError)
	fs.StringVar(&opts.databaseURL, "database-url", "", "postgres url, defaults to the server settings")
	fs.BoolVar(&opts.down, "down", false, "roll back instead of applying")
	fs.IntVar(&opts.steps, "steps", 0, "number of migrations to apply or roll back, 0 for all")
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("MIGRATOR")); err != nil {
		return nil, err
	}
	if opts.steps < 0 {
		return nil, fmt.Errorf("steps must not be negative")
	}
	if opts.databaseURL == "" {
		url, err := config.DbURL()
		if err != nil {
			return nil, err
		}
		opts.databaseURL = url
	}
	return &opts, nil
}

func run(m *migrate.Migrate, opts *options) error {
	var err error
	switch {
	case opts.steps > 0 && opts.down:
		err = m.Steps(-opts.steps)
	case opts.steps > 0:
		err = m.Steps(opts.steps)
	case opts.down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func main() {
	var logger *slog.Logger
	if config.Development() {
		logger = slog.New(tint.NewHandler(os.Stderr, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		logger.Error("invalid options", slog.Any("error", err))
		os.Exit(2)
	}

	m, err := database.NewMigrator(opts.databaseURL, database.Migrations)
	if err != nil {
		logger.Error("failed to connect to db", slog.Any("error", err))
		os.Exit(1)
	}
	defer m.Close()

	if err := run(m, opts); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("database has no migrations applied")
		return
	}
	if err != nil {
		logger.Error("failed to check migration version", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migration successful", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
}
