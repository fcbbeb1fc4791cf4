// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vehicle-inspection-platform/internal/config"
	"vehicle-inspection-platform/internal/domain/ports/adapter"
	"vehicle-inspection-platform/internal/domain/ports/repository"
	analysisAdapters "vehicle-inspection-platform/internal/infra/adapters/analysis"
	"vehicle-inspection-platform/internal/infra/api"
	pg "vehicle-inspection-platform/internal/infra/db/postgres"
	"vehicle-inspection-platform/internal/infra/logging"
	"vehicle-inspection-platform/internal/infra/metrics"
	red "vehicle-inspection-platform/internal/infra/redis"
	"vehicle-inspection-platform/internal/infra/sched"
	"vehicle-inspection-platform/internal/infra/worker"
	"vehicle-inspection-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "development mode (noop analysis adapter, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Repositories ----
	var inspections repository.InspectionRepository = pg.NewInspectionRepo(pool)
	results := pg.NewResultRepo(pool)

	// ---- Redis (optional poll cache) ----
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		inspections = pg.NewInspectionRepoCacheDecorator(inspections, redisClient, cfg.Redis.TTL)
		logger.Info().Str("addr", cfg.Redis.URL).Msg("inspection poll cache enabled")
	}

	// ---- Analysis adapter ----
	var analysis adapter.AnalysisAdapter
	if cfg.Runtime.Dev && cfg.Analysis.BaseURL == "" {
		analysis = analysisAdapters.NewNoopAdapter(logger)
		logger.Warn().Msg("analysis adapter: noop (dev mode)")
	} else {
		analysis, err = analysisAdapters.NewHTTPAdapter(cfg.Analysis.BaseURL, cfg.Analysis.HealthTimeout, cfg.Analysis.ProcessTimeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("analysis adapter init failed")
		}
		logger.Info().Str("base_url", cfg.Analysis.BaseURL).Msg("analysis adapter: http")
	}

	// ---- Orchestration ----
	runner := worker.NewRunner(ctx, logger)
	uc := usecase.NewInspectionUseCase(
		inspections, results, tm, analysis, runner,
		usecase.RetryPolicy{
			BaseDelay:  cfg.Retry.BaseDelay,
			CapDelay:   cfg.Retry.CapDelay,
			MaxRetries: cfg.Retry.MaxRetries,
		},
		usecase.ProgressConfig{
			Initial:  cfg.Progress.Initial,
			Handoff:  cfg.Progress.Handoff,
			Step:     cfg.Progress.Step,
			Interval: cfg.Progress.Interval,
			Ceiling:  cfg.Progress.Ceiling,
		},
		logger,
	)

	// ---- Stale-run reconciler ----
	var reconciler *sched.StaleRunReconciler
	if cfg.Reconciler.Enabled {
		reconciler = sched.NewStaleRunReconciler(inspections, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
		go reconciler.Start(ctx)
	}

	// ---- HTTP servers ----
	apiServer := api.NewServer(cfg, uc, logger)
	adminServer := api.NewAdminServer(cfg, uc, reconciler, logger)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api server failed")
		}
	}()
	go func() {
		if err := adminServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("admin server failed")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop intake first, then give in-flight runs a chance to reach a
	// terminal state before cancelling their context.
	_ = apiServer.Shutdown(shutdownCtx)
	_ = adminServer.Shutdown(shutdownCtx)
	if err := runner.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("in-flight inspections did not finish before shutdown")
	}
	cancel()
	logger.Info().Msg("bye")
}
