package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/validator-service/internal/entity"
	"github.com/user/validator-service/internal/lifecycle"
	"github.com/user/validator-service/internal/repository"
	"github.com/user/validator-service/pkg/metrics"
	"github.com/user/validator-service/pkg/ratelimit"
)

// Scanner runs one country's validation session.
type Scanner interface {
	ScanCountry(ctx context.Context, country string) (*entity.ScanSummary, error)
}

type scanUseCase struct {
	sourceList repository.SourceListRepository
	prober     repository.Prober
	results    repository.ResultRepository
	cache      repository.ProbeCache // nil disables probe dedup
	rateLimit  float64
	cacheTTL   time.Duration
}

// NewScanner creates the scan session use case. cache may be nil.
func NewScanner(
	sourceList repository.SourceListRepository,
	prober repository.Prober,
	results repository.ResultRepository,
	cache repository.ProbeCache,
	rateLimit float64,
	cacheTTL time.Duration,
) Scanner {
	return &scanUseCase{
		sourceList: sourceList,
		prober:     prober,
		results:    results,
		cache:      cache,
		rateLimit:  rateLimit,
		cacheTTL:   cacheTTL,
	}
}

// ScanCountry loads a country's records and runs each through the rate
// limiter, the prober and the lifecycle tracker. Removed records are
// skipped untouched. The updated record set is written back atomically at
// the end; nothing is persisted if the session aborts mid-way, so an
// aborted unit can safely be re-claimed.
func (uc *scanUseCase) ScanCountry(ctx context.Context, country string) (*entity.ScanSummary, error) {
	records, err := uc.sourceList.LoadUrls(ctx, country)
	if err != nil {
		return nil, fmt.Errorf("failed to load source list for %s: %w", country, err)
	}

	scanID := fmt.Sprintf("%s-%s-%s",
		country,
		time.Now().UTC().Format("20060102-150405"),
		uuid.NewString()[:8],
	)
	summary := &entity.ScanSummary{ScanID: scanID, CountryCode: country, Total: len(records)}
	slog.Info("Starting scan session", "scan_id", scanID, "country", country, "urls", len(records))

	// Per-country limiter: concurrency across countries never circumvents
	// the per-host pacing within one country.
	limiter := ratelimit.New(uc.rateLimit)

	var results []entity.ValidationResult
	for i := range records {
		rec := &records[i]

		if rec.Removed {
			summary.Skipped++
			continue
		}
		if uc.cache != nil {
			seen, err := uc.cache.Seen(ctx, rec.URL)
			if err != nil {
				slog.Warn("Probe cache lookup failed, probing anyway", "url", rec.URL, "error", err)
			} else if seen {
				summary.Skipped++
				continue
			}
		}

		if err := limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		outcome, err := uc.prober.Probe(ctx, rec.URL)
		if err != nil {
			return nil, fmt.Errorf("probe aborted for %s: %w", rec.URL, err)
		}
		metrics.ProbeDuration.WithLabelValues(country).Observe(time.Since(start).Seconds())
		metrics.ProbesTotal.WithLabelValues(string(outcome.Status)).Inc()

		wasRemoved := rec.Removed
		lifecycle.Apply(rec, outcome, outcome.ValidatedAt)

		switch outcome.Status {
		case entity.UrlStatusValid:
			summary.Valid++
		case entity.UrlStatusRedirected:
			summary.Redirected++
			slog.Info("URL redirected, canonical form updated",
				"scan_id", scanID, "url", outcome.URL, "redirected_to", outcome.FinalURL)
		default:
			summary.Invalid++
		}
		if rec.Removed && !wasRemoved {
			summary.Removed++
			metrics.UrlsRemovedTotal.Inc()
			slog.Info("URL removed after second consecutive failure",
				"scan_id", scanID, "url", rec.URL, "error", rec.ErrorMessage)
		}

		redirectedTo := ""
		if outcome.Status == entity.UrlStatusRedirected {
			redirectedTo = outcome.FinalURL
		}
		results = append(results, entity.ValidationResult{
			ScanID:        scanID,
			CountryCode:   country,
			URL:           outcome.URL,
			StatusCode:    outcome.HTTPStatus,
			ErrorMessage:  outcome.ErrorMessage,
			RedirectedTo:  redirectedTo,
			RedirectChain: outcome.Hops,
			IsValid:       outcome.IsValid(),
			FailureStreak: rec.FailureStreak,
			ValidatedAt:   outcome.ValidatedAt,
		})

		if uc.cache != nil && uc.cacheTTL > 0 {
			if err := uc.cache.MarkProbed(ctx, rec.URL, uc.cacheTTL); err != nil {
				slog.Warn("Failed to record probe in cache", "url", rec.URL, "error", err)
			}
		}

		// A dead parent context means the execution budget ran out, not
		// that the URL failed; abort without persisting.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if err := withRetry(ctx, "save validation results", func() error {
		return uc.results.SaveAll(ctx, results)
	}); err != nil {
		return nil, fmt.Errorf("failed to save validation results for %s: %w", country, err)
	}

	if err := withRetry(ctx, "save source list", func() error {
		return uc.sourceList.SaveUrls(ctx, country, records)
	}); err != nil {
		return nil, fmt.Errorf("failed to save source list for %s: %w", country, err)
	}

	slog.Info("Scan session complete",
		"scan_id", scanID,
		"country", country,
		"total", summary.Total,
		"valid", summary.Valid,
		"invalid", summary.Invalid,
		"redirected", summary.Redirected,
		"removed", summary.Removed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}
