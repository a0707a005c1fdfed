package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sonic "github.com/bytedance/sonic"

	"github.com/dotastats/prostats/external/opendota"
	"github.com/dotastats/prostats/internal/config"
	"github.com/dotastats/prostats/internal/infrastructure/repository/postgres"
	"github.com/dotastats/prostats/internal/platform/logging"
	"github.com/dotastats/prostats/internal/platform/ratelimit"
	"github.com/dotastats/prostats/internal/platform/resilience"
	"github.com/dotastats/prostats/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel).With(
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"env", cfg.AppEnv,
	)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.DBURL)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	limiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.ProviderRatePerMinute,
		PerDay:    cfg.ProviderRatePerDay,
	})
	client := opendota.NewClient(opendota.ClientConfig{
		BaseURL:    cfg.ProviderBaseURL,
		APIKey:     cfg.ProviderAPIKey,
		Timeout:    cfg.ProviderTimeout,
		MaxRetries: cfg.ProviderMaxRetries,
		Logger:     logger,
		Limiter:    limiter,
		CircuitBreaker: resilience.BreakerConfig{
			Enabled:          cfg.ProviderCircuitEnabled,
			FailureThreshold: cfg.ProviderCircuitFailureCount,
			OpenTimeout:      cfg.ProviderCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ProviderCircuitHalfOpenReq,
		},
	})

	matchRepo := postgres.NewMatchRepository(db)
	checkpointRepo := postgres.NewCheckpointRepository(db)
	referenceRepo := postgres.NewReferenceRepository(db)

	if cfg.RefreshReference {
		refresher := usecase.NewReferenceService(client, referenceRepo, logger)
		if err := refresher.Refresh(ctx); err != nil {
			// Match documents carry enough to stub missing reference rows, so
			// a failed catalog refresh does not block the crawl.
			logger.WarnContext(ctx, "reference refresh failed", "error", err)
		}
	}

	index, err := usecase.LoadIndex(ctx, matchRepo)
	if err != nil {
		logger.ErrorContext(ctx, "load dedup index", "error", err)
		os.Exit(1)
	}
	logger.InfoContext(ctx, "dedup index loaded",
		"matches", index.Len(usecase.KindMatch),
		"teams", index.Len(usecase.KindTeam),
		"players", index.Len(usecase.KindPlayer),
	)

	ingester := usecase.NewIngestService(
		usecase.IngestConfig{
			RunName:      cfg.IngestRunName,
			Workers:      cfg.IngestWorkers,
			MaxPages:     cfg.IngestMaxPages,
			MaxMatches:   cfg.IngestMaxMatches,
			FailureRatio: cfg.IngestFailureRatio,
		},
		client,
		matchRepo,
		matchRepo,
		checkpointRepo,
		index,
		logger,
	)

	summary, runErr := ingester.Run(ctx)
	printSummary(logger, summary)
	if runErr != nil {
		logger.ErrorContext(ctx, "ingestion run failed", "error", runErr)
		os.Exit(1)
	}
}

func printSummary(logger *logging.Logger, summary usecase.RunSummary) {
	encoded, err := sonic.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Error("encode run summary", "error", err)
		return
	}
	fmt.Println(string(encoded))
}
