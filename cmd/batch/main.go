package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/user/validator-service/internal/adapter/httpprobe"
	"github.com/user/validator-service/internal/adapter/postgres"
	"github.com/user/validator-service/internal/adapter/progress"
	redis_adapter "github.com/user/validator-service/internal/adapter/redis"
	"github.com/user/validator-service/internal/adapter/sourcelist"
	"github.com/user/validator-service/internal/repository"
	"github.com/user/validator-service/internal/usecase"
	"github.com/user/validator-service/pkg/config"
	"github.com/user/validator-service/pkg/logger"
	"github.com/user/validator-service/pkg/metrics"
)

func main() {
	batchSize := flag.Int("batch-size", 0, "countries to claim this run (overrides BATCH_SIZE)")
	rateLimit := flag.Float64("rate-limit", 0, "maximum probes per second (overrides RATE_LIMIT_PER_SECOND)")
	flag.Parse()

	// --- Configuration ---
	cfg := config.Load()
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *rateLimit > 0 {
		cfg.RateLimit = *rateLimit
	}

	// --- Logger ---
	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// --- Metrics ---
	metrics.Init()
	if cfg.MetricsPort != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				slog.Error("Metrics listener failed", "error", err)
			}
		}()
	}

	// One invocation is strictly time-bounded; anything left over is
	// picked up by the next run.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.MaxRuntime)
	defer cancel()

	// --- Metadata Store ---
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	if err := postgres.InitSchema(ctx, dbpool); err != nil {
		slog.Error("Unable to initialize schema", "error", err)
		os.Exit(1)
	}
	slog.Info("PostgreSQL connection pool established")

	// --- Probe cache (optional) ---
	var cache repository.ProbeCache
	if cfg.ProbeCacheTTL > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			slog.Warn("Unable to connect to Redis, probe cache disabled", "error", err)
		} else {
			cache = redis_adapter.NewProbeCache(rdb)
			slog.Info("Redis connection established")
		}
	}

	// --- Source list store ---
	store, err := sourcelist.NewFileStore(cfg.SourceListDir)
	if err != nil {
		slog.Error("Unable to open source list store", "error", err)
		os.Exit(1)
	}

	// --- Progress sink ---
	var sink repository.ProgressSink = progress.NewLogSink()
	if cfg.ProgressWebhookURL != "" {
		sink = progress.NewWebhookSink(cfg.ProgressWebhookURL)
	}

	// --- Use cases ---
	prober := httpprobe.NewHTTPProber(cfg.ProbeTimeout, cfg.MaxRedirects, cfg.UserAgent)
	scanner := usecase.NewScanner(store, prober, postgres.NewResultRepo(dbpool), cache, cfg.RateLimit, cfg.ProbeCacheTTL)
	coordinator := usecase.NewCoordinator(
		postgres.NewCycleRepo(dbpool),
		postgres.NewUnitRepo(dbpool),
		store,
		sink,
		scanner,
		usecase.CoordinatorConfig{
			StaleClaimAfter: cfg.StaleClaimAfter,
			UnitConcurrency: cfg.UnitConcurrency,
		},
	)

	snapshot, err := coordinator.RunBatch(ctx, cfg.BatchSize)
	if err != nil {
		slog.Error("Batch run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Batch run finished",
		"cycle_id", snapshot.CycleID,
		"total", snapshot.Total,
		"completed", snapshot.Completed,
		"processing", snapshot.Processing,
		"pending", snapshot.Pending,
		"failed", snapshot.Failed,
		"cycle_complete", snapshot.IsComplete(),
	)
}
