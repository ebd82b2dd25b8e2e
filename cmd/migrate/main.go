// Package main provides the schema migration CLI for the article
// search service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/article-search-service/internal/config"
	"github.com/helixir/article-search-service/internal/database"
	"github.com/helixir/article-search-service/internal/observability"
)

type options struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.BoolVar(&opts.up, "up", false, "apply all pending migrations")
	flag.BoolVar(&opts.down, "down", false, "roll back all migrations")
	flag.IntVar(&opts.steps, "steps", 0, "run N migration steps (negative rolls back)")
	flag.BoolVar(&opts.version, "version", false, "print the current migration version")
	flag.IntVar(&opts.force, "force", -1, "force the recorded version without migrating")
	flag.StringVar(&opts.path, "path", "", "override the migrations directory")
	flag.Parse()

	actions := 0
	for _, set := range []bool{opts.up, opts.down, opts.steps != 0, opts.version, opts.force >= 0} {
		if set {
			actions++
		}
	}
	switch {
	case actions == 0:
		flag.Usage()
		return opts, fmt.Errorf("specify one of: -up, -down, -steps N, -version, -force V")
	case actions > 1:
		return opts, fmt.Errorf("specify only one action at a time")
	}
	return opts, nil
}

func run() error {
	opts, err := parseFlags()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Console output reads better for a one-shot CLI than JSON lines.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	migrationDir := cfg.Database.MigrationPath
	if opts.path != "" {
		migrationDir = opts.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := execute(migrator, opts); err != nil {
		return err
	}
	reportVersion(migrator, logger)
	return nil
}

func execute(migrator *database.Migrator, opts options) error {
	switch {
	case opts.up:
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case opts.down:
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case opts.steps != 0:
		if err := migrator.Steps(opts.steps); err != nil {
			return fmt.Errorf("migrate steps: %w", err)
		}
	case opts.force >= 0:
		if err := migrator.Force(opts.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	}
	return nil
}

func reportVersion(migrator *database.Migrator, logger zerolog.Logger) {
	v, dirty, err := migrator.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine migration version")
		return
	}
	logger.Info().
		Uint("version", v).
		Bool("dirty", dirty).
		Msg("current migration version")
}
