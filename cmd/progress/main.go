package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/validator-service/internal/adapter/postgres"
	"github.com/user/validator-service/pkg/config"
	"github.com/user/validator-service/pkg/logger"
)

func main() {
	cycleID := flag.String("cycle", "", "cycle to inspect (default: the open cycle)")
	detail := flag.Bool("detail", false, "include per-country units")
	flag.Parse()

	cfg := config.Load()
	logger.Init(os.Stderr, logger.ParseLevel(cfg.LogLevel))

	ctx := context.Background()
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	cycleRepo := postgres.NewCycleRepo(dbpool)
	unitRepo := postgres.NewUnitRepo(dbpool)

	id := *cycleID
	if id == "" {
		cycle, err := cycleRepo.FindOpen(ctx)
		if err != nil {
			slog.Error("No cycle to inspect", "error", err)
			os.Exit(1)
		}
		id = cycle.CycleID
	}

	snapshot, err := unitRepo.Progress(ctx, id)
	if err != nil {
		slog.Error("Unable to read cycle progress", "cycle_id", id, "error", err)
		os.Exit(1)
	}

	out := map[string]any{
		"progress":    snapshot,
		"is_complete": snapshot.IsComplete(),
	}
	if *detail {
		units, err := unitRepo.List(ctx, id)
		if err != nil {
			slog.Error("Unable to list units", "cycle_id", id, "error", err)
			os.Exit(1)
		}
		type unitView struct {
			CountryCode  string `json:"country_code"`
			Status       string `json:"status"`
			ErrorSummary string `json:"error_summary,omitempty"`
		}
		views := make([]unitView, 0, len(units))
		for _, u := range units {
			views = append(views, unitView{
				CountryCode:  u.CountryCode,
				Status:       string(u.Status),
				ErrorSummary: u.ErrorSummary,
			})
		}
		out["units"] = views
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		slog.Error("Unable to encode progress", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(encoded))
}
