// Package main provides the entry point for the article search service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/article-search-service/internal/config"
	"github.com/helixir/article-search-service/internal/database"
	"github.com/helixir/article-search-service/internal/llm"
	"github.com/helixir/article-search-service/internal/observability"
	"github.com/helixir/article-search-service/internal/repository"
	"github.com/helixir/article-search-service/internal/search"
	httpserver "github.com/helixir/article-search-service/internal/server/http"
	"github.com/helixir/article-search-service/internal/sources"
	"github.com/helixir/article-search-service/internal/sources/arxiv"
	"github.com/helixir/article-search-service/internal/sources/clinicaltrials"
	"github.com/helixir/article-search-service/internal/sources/europepmc"
	"github.com/helixir/article-search-service/internal/sources/pubmed"
	"github.com/helixir/article-search-service/internal/sources/semanticscholar"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("article-search-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("artsearch")
	}

	// Repository over the shared pool.
	articleRepo := repository.NewPgArticleRepository(db)

	// Register the enabled source adapters. Registration order is the
	// routing tie-break order.
	registry := buildRegistry(cfg)
	logger.Info().Int("sources", registry.Len()).Msg("source adapters registered")

	// Search orchestrator.
	orchestrator := search.NewOrchestrator(registry, articleRepo, metrics, logger, search.Config{
		MaxAttempts: cfg.Search.MaxAttempts,
	})

	// AI enricher, noop unless enabled.
	var enricher llm.Enricher = llm.NewNoopEnricher()
	if cfg.AI.Enabled {
		enricher = llm.NewOpenAIEnricher(llm.OpenAIConfig{
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			BaseURL:     cfg.AI.BaseURL,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
			MaxRetries:  cfg.AI.MaxRetries,
			RetryDelay:  cfg.AI.RetryDelay,
		}, metrics)
		logger.Info().Str("model", cfg.AI.Model).Msg("AI enrichment enabled")
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(httpCfg, orchestrator, articleRepo, enricher, db, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP REST API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("article-search-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down article-search-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("article-search-service shutdown complete")
	return nil
}

// buildRegistry constructs adapters for every enabled source. Config
// zero values defer to each adapter's built-in defaults.
func buildRegistry(cfg *config.Config) *sources.Registry {
	registry := sources.NewRegistry()

	if src := cfg.Sources.PubMed; src.Enabled {
		registry.Register(pubmed.New(pubmed.Config{
			BaseURL:        src.BaseURL,
			APIKey:         src.APIKey,
			Timeout:        src.Timeout,
			CallsPerSecond: src.CallsPerSecond,
			Priority:       src.Priority,
		}))
	}

	if src := cfg.Sources.EuropePMC; src.Enabled {
		registry.Register(europepmc.New(europepmc.Config{
			BaseURL:        src.BaseURL,
			Timeout:        src.Timeout,
			CallsPerSecond: src.CallsPerSecond,
			Priority:       src.Priority,
		}))
	}

	if src := cfg.Sources.ClinicalTrials; src.Enabled {
		registry.Register(clinicaltrials.New(clinicaltrials.Config{
			BaseURL:        src.BaseURL,
			Timeout:        src.Timeout,
			CallsPerSecond: src.CallsPerSecond,
			Priority:       src.Priority,
		}))
	}

	if src := cfg.Sources.SemanticScholar; src.Enabled {
		registry.Register(semanticscholar.New(semanticscholar.Config{
			BaseURL:        src.BaseURL,
			APIKey:         src.APIKey,
			Timeout:        src.Timeout,
			CallsPerSecond: src.CallsPerSecond,
			Priority:       src.Priority,
		}))
	}

	if src := cfg.Sources.ArXiv; src.Enabled {
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:        src.BaseURL,
			Timeout:        src.Timeout,
			CallsPerSecond: src.CallsPerSecond,
			Priority:       src.Priority,
		}))
	}

	return registry
}
