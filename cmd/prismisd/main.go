// Command prismisd is Prismis's daemon: it loads configuration, opens
// storage, validates the configured LLM provider, and runs the
// fetch-enrich-store pipeline on a cooperative schedule behind a REST API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prismis/prismis/internal/api"
	"github.com/prismis/prismis/internal/config"
	"github.com/prismis/prismis/internal/database"
	"github.com/prismis/prismis/internal/fetch"
	"github.com/prismis/prismis/internal/llm"
	"github.com/prismis/prismis/internal/logging"
	"github.com/prismis/prismis/internal/models"
	"github.com/prismis/prismis/internal/notify"
	"github.com/prismis/prismis/internal/observability"
	"github.com/prismis/prismis/internal/orchestrator"
	"github.com/prismis/prismis/internal/supervisor"
	"github.com/prismis/prismis/internal/supervisor/services"
)

// archivalInterval and backfillInterval pace the maintenance jobs.
const (
	archivalInterval   = 6 * time.Hour
	backfillInterval   = 15 * time.Minute
	obsCleanupInterval = 24 * time.Hour
	backfillLimit      = 50
	shutdownTimeout    = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("prismisd: fatal startup error")
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{Level: "info", Format: "json"})
	log := logging.With().Str("component", "main").Logger()

	dataDir := dataHome()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, "prismis.db")
	db, err := database.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	storage := db.Acquire()
	defer storage.Release()

	obs, err := observability.New(filepath.Join(dataDir, "observability"))
	if err != nil {
		return fmt.Errorf("open observability ledger: %w", err)
	}

	userContext, err := llm.LoadUserContext(filepath.Join(configHome(), "prismis", "context.md"))
	if err != nil {
		return fmt.Errorf("load context.md: %w", err)
	}

	chatProvider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.APIKey, cfg.LLM.APIBase)
	if err != nil {
		return fmt.Errorf("construct llm provider: %w", err)
	}

	if err := llm.ValidateStartup(context.Background(), chatProvider); err != nil {
		return fmt.Errorf("llm startup health check: %w", err)
	}

	coordinator := llm.NewCoordinator(chatProvider, nil, obs)
	notifier := notify.New(cfg.Notifications.Command, cfg.Notifications.HighPriorityOnly, obs)

	registry := fetch.NewRegistry(
		fetch.NewFeedFetcher(cfg.Daemon.MaxItemsRSS, cfg.Daemon.MaxDaysLookback),
		mustForumFetcher(cfg),
		fetch.NewVideoFetcher(cfg.Daemon.MaxItemsYouTube, cfg.Daemon.MaxDaysLookback, ""),
		fetch.NewFileFetcher(previousFileLookup(storage)),
		obs,
	)

	orch := &orchestrator.Orchestrator{
		Storage:        storage,
		Fetchers:       registry,
		LLM:            coordinator,
		Notifier:       notifier,
		Obs:            obs,
		UserContext:    userContext.Render(),
		EmbeddingModel: cfg.LLM.Model,
	}

	archivalJob := &orchestrator.ArchivalJob{
		Storage: storage,
		Windows: archivalWindows(cfg),
		Obs:     obs,
	}
	backfillJob := &orchestrator.BackfillJob{
		Storage:        storage,
		LLM:            coordinator,
		Limit:          backfillLimit,
		EmbeddingModel: cfg.LLM.Model,
		Obs:            obs,
	}

	tree := supervisor.New(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddPipelineService(services.NewTickService("tick", cfg.Daemon.FetchInterval, func(ctx context.Context) {
		if _, err := orch.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("tick failed")
		}
	}))
	if cfg.Archival.Enabled {
		tree.AddPipelineService(services.NewTickService("archival", archivalInterval, func(ctx context.Context) {
			if _, err := archivalJob.Run(ctx); err != nil {
				log.Error().Err(err).Msg("archival job failed")
			}
		}))
	}
	tree.AddPipelineService(services.NewTickService("embedding-backfill", backfillInterval, func(ctx context.Context) {
		if _, _, err := backfillJob.Run(ctx); err != nil {
			log.Error().Err(err).Msg("embedding backfill failed")
		}
	}))
	tree.AddPipelineService(services.NewTickService("observability-cleanup", obsCleanupInterval, func(ctx context.Context) {
		if err := obs.Cleanup(0); err != nil {
			log.Error().Err(err).Msg("observability cleanup failed")
		}
	}))

	router := api.NewRouter(api.Deps{
		Storage:        storage,
		LLM:            coordinator,
		APIKey:         cfg.API.Key,
		ArchivalWindow: archivalWindows(cfg),
	})
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler: router,
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, shutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", httpServer.Addr).Msg("prismisd starting")
	return tree.Serve(ctx)
}

// previousFileLookup adapts *database.Handle's LatestContentForURL to the
// fetch.PreviousFileLookup shape the file fetcher expects.
func previousFileLookup(storage *database.Handle) fetch.PreviousFileLookup {
	return func(ctx context.Context, sourceID int64, url string) (*fetch.PreviousFileFetch, error) {
		item, err := storage.LatestContentForURL(sourceID, url)
		if err != nil || item == nil {
			return nil, err
		}
		return &fetch.PreviousFileFetch{
			ExternalID:  item.ExternalID,
			ContentHash: item.Analysis.ContentHash,
			FullText:    item.Analysis.FullText,
		}, nil
	}
}

// mustForumFetcher builds the forum fetcher; go-reddit client construction
// only fails on malformed options, which NewForumFetcher's fixed call shape
// never produces, so a construction error here is treated as a startup
// config error.
func mustForumFetcher(cfg *config.Config) *fetch.ForumFetcher {
	f, err := fetch.NewForumFetcher(cfg.Daemon.MaxItemsReddit, 0, cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent)
	if err != nil {
		logging.Fatal().Err(err).Msg("construct forum fetcher")
	}
	return f
}

func archivalWindows(cfg *config.Config) models.ArchivalWindows {
	return models.ArchivalWindows{
		HighRead:     cfg.Archival.HighRead,
		MediumUnread: cfg.Archival.MediumUnread,
		MediumRead:   cfg.Archival.MediumRead,
		LowUnread:    cfg.Archival.LowUnread,
		LowRead:      cfg.Archival.LowRead,
	}
}

func dataHome() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "prismis")
}

func configHome() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return base
}
