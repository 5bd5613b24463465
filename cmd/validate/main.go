package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/validator-service/internal/adapter/httpprobe"
	"github.com/user/validator-service/internal/adapter/postgres"
	redis_adapter "github.com/user/validator-service/internal/adapter/redis"
	"github.com/user/validator-service/internal/adapter/sourcelist"
	"github.com/user/validator-service/internal/repository"
	"github.com/user/validator-service/internal/usecase"
	"github.com/user/validator-service/pkg/config"
	"github.com/user/validator-service/pkg/logger"
	"github.com/user/validator-service/pkg/metrics"
)

func main() {
	country := flag.String("country", "", "country code to validate (e.g. ICELAND, FRANCE)")
	rateLimit := flag.Float64("rate-limit", 0, "maximum probes per second (overrides RATE_LIMIT_PER_SECOND)")
	sourceDir := flag.String("source-dir", "", "source list directory (overrides SOURCE_LIST_DIR)")
	flag.Parse()

	// --- Configuration ---
	cfg := config.Load()
	if *rateLimit > 0 {
		cfg.RateLimit = *rateLimit
	}
	if *sourceDir != "" {
		cfg.SourceListDir = *sourceDir
	}

	// --- Logger ---
	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if *country == "" {
		slog.Error("Missing required flag", "flag", "country")
		os.Exit(1)
	}

	// --- Metrics ---
	metrics.Init()

	ctx := context.Background()

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
		}
	}

	// --- Source list store ---
	store, err := sourcelist.NewFileStore(cfg.SourceListDir)
	if err != nil {
		slog.Error("Unable to open source list store", "error", err)
		os.Exit(1)
	}

	// --- Scan ---
	prober := httpprobe.NewHTTPProber(cfg.ProbeTimeout, cfg.MaxRedirects, cfg.UserAgent)
	resultRepo := postgres.NewResultRepo(dbpool)
	scanner := usecase.NewScanner(store, prober, resultRepo, cache, cfg.RateLimit, cfg.ProbeCacheTTL)

	summary, err := scanner.ScanCountry(ctx, strings.ToUpper(*country))
	if err != nil {
		slog.Error("Country validation failed", "country", *country, "error", err)
		os.Exit(1)
	}
	slog.Info("Country validation finished",
		"scan_id", summary.ScanID,
		"country", summary.CountryCode,
		"total", summary.Total,
		"valid", summary.Valid,
		"invalid", summary.Invalid,
		"redirected", summary.Redirected,
		"removed", summary.Removed,
		"skipped", summary.Skipped,
	)
}
