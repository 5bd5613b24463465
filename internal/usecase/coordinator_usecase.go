package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/validator-service/internal/entity"
	"github.com/user/validator-service/internal/repository"
	"github.com/user/validator-service/pkg/metrics"
)

// cycleIDFormat is the timestamp layout of cycle identifiers,
// e.g. "20260226-223045".
const cycleIDFormat = "20060102-150405"

// Coordinator manages a validation cycle spanning many independent,
// time-bounded executions. The metadata store is the only shared state.
type Coordinator interface {
	// StartCycle creates a new cycle with a pending unit per known
	// country. Fails with repository.ErrCycleOpen if one is already open.
	StartCycle(ctx context.Context) (string, error)
	// GetOrCreateCycle returns the open cycle, creating one if none exists.
	GetOrCreateCycle(ctx context.Context) (string, error)
	// ClaimNextBatch atomically claims up to n pending units.
	ClaimNextBatch(ctx context.Context, cycleID string, n int) ([]string, error)
	// ReportUnitOutcome records a terminal unit status.
	ReportUnitOutcome(ctx context.Context, cycleID, country string, status entity.UnitStatus, errorSummary string, summary *entity.ScanSummary) error
	// CycleProgress is a pure read of the cycle's unit counts.
	CycleProgress(ctx context.Context, cycleID string) (*entity.CycleProgress, error)
	// IsCycleComplete reports whether all units are terminal, closing the
	// cycle on the first observation.
	IsCycleComplete(ctx context.Context, cycleID string) (bool, error)
	// RunBatch performs one invocation's work: reclaim stale units, claim
	// a batch, scan the claimed countries, report outcomes, publish
	// progress, and close the cycle if it completed.
	RunBatch(ctx context.Context, batchSize int) (*entity.CycleProgress, error)
}

// CoordinatorConfig tunes cross-invocation behavior.
type CoordinatorConfig struct {
	// StaleClaimAfter is the staleness window for reclaiming processing
	// units whose execution died without reporting.
	StaleClaimAfter time.Duration
	// UnitConcurrency bounds how many claimed countries run at once.
	UnitConcurrency int
	// ShutdownMargin stops starting new countries when less than this
	// remains of the invocation's deadline.
	ShutdownMargin time.Duration
}

type coordinatorUseCase struct {
	cycles     repository.CycleRepository
	units      repository.UnitRepository
	sourceList repository.SourceListRepository
	sink       repository.ProgressSink
	scanner    Scanner
	cfg        CoordinatorConfig
}

// NewCoordinator creates the batch coordinator use case.
func NewCoordinator(
	cycles repository.CycleRepository,
	units repository.UnitRepository,
	sourceList repository.SourceListRepository,
	sink repository.ProgressSink,
	scanner Scanner,
	cfg CoordinatorConfig,
) Coordinator {
	if cfg.UnitConcurrency <= 0 {
		cfg.UnitConcurrency = 1
	}
	if cfg.ShutdownMargin <= 0 {
		cfg.ShutdownMargin = 5 * time.Minute
	}
	return &coordinatorUseCase{
		cycles:     cycles,
		units:      units,
		sourceList: sourceList,
		sink:       sink,
		scanner:    scanner,
		cfg:        cfg,
	}
}

func (uc *coordinatorUseCase) StartCycle(ctx context.Context) (string, error) {
	countries, err := uc.sourceList.Countries(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list countries: %w", err)
	}
	if len(countries) == 0 {
		return "", errors.New("no countries available in the source list store")
	}

	now := time.Now().UTC()
	cycle := &entity.ValidationCycle{CycleID: now.Format(cycleIDFormat), CreatedAt: now}
	if err := withRetry(ctx, "create cycle", func() error {
		return uc.cycles.Create(ctx, cycle)
	}); err != nil {
		return "", err
	}

	if err := withRetry(ctx, "create country units", func() error {
		return uc.units.CreateBatch(ctx, cycle.CycleID, countries)
	}); err != nil {
		return "", fmt.Errorf("failed to create units for cycle %s: %w", cycle.CycleID, err)
	}

	slog.Info("Started validation cycle", "cycle_id", cycle.CycleID, "countries", len(countries))
	return cycle.CycleID, nil
}

func (uc *coordinatorUseCase) GetOrCreateCycle(ctx context.Context) (string, error) {
	cycle, err := uc.cycles.FindOpen(ctx)
	if err == nil {
		return cycle.CycleID, nil
	}
	if !errors.Is(err, repository.ErrNoOpenCycle) {
		return "", err
	}

	cycleID, err := uc.StartCycle(ctx)
	if errors.Is(err, repository.ErrCycleOpen) {
		// Another execution created the cycle between our read and write.
		if cycle, err := uc.cycles.FindOpen(ctx); err == nil {
			return cycle.CycleID, nil
		}
	}
	return cycleID, err
}

func (uc *coordinatorUseCase) ClaimNextBatch(ctx context.Context, cycleID string, n int) ([]string, error) {
	var claimed []string
	err := withRetry(ctx, "claim units", func() error {
		var err error
		claimed, err = uc.units.ClaimNext(ctx, cycleID, n)
		return err
	})
	return claimed, err
}

func (uc *coordinatorUseCase) ReportUnitOutcome(ctx context.Context, cycleID, country string, status entity.UnitStatus, errorSummary string, summary *entity.ScanSummary) error {
	if status != entity.UnitStatusCompleted && status != entity.UnitStatusFailed {
		return fmt.Errorf("unit outcome must be completed or failed, got %q", status)
	}
	if err := withRetry(ctx, "report unit outcome", func() error {
		return uc.units.ReportOutcome(ctx, cycleID, country, status, errorSummary, summary)
	}); err != nil {
		return err
	}
	metrics.UnitsReported.WithLabelValues(string(status)).Inc()
	return nil
}

func (uc *coordinatorUseCase) CycleProgress(ctx context.Context, cycleID string) (*entity.CycleProgress, error) {
	return uc.units.Progress(ctx, cycleID)
}

func (uc *coordinatorUseCase) IsCycleComplete(ctx context.Context, cycleID string) (bool, error) {
	progress, err := uc.units.Progress(ctx, cycleID)
	if err != nil {
		return false, err
	}
	if !progress.IsComplete() {
		return false, nil
	}
	if err := uc.closeCycle(ctx, cycleID, *progress); err != nil {
		return true, err
	}
	return true, nil
}

// closeCycle transitions the cycle to its terminal state. The repository
// guarantees the transition happens once; only the closing caller
// finalizes the progress sink.
func (uc *coordinatorUseCase) closeCycle(ctx context.Context, cycleID string, progress entity.CycleProgress) error {
	closed, err := uc.cycles.Close(ctx, cycleID)
	if err != nil {
		return fmt.Errorf("failed to close cycle %s: %w", cycleID, err)
	}
	if !closed {
		return nil
	}

	slog.Info("Validation cycle closed",
		"cycle_id", cycleID,
		"completed", progress.Completed,
		"failed", progress.Failed,
	)
	if handle := uc.progressHandle(ctx, cycleID); handle != "" {
		if err := uc.sink.Close(ctx, handle, progress); err != nil {
			slog.Warn("Failed to close progress record", "cycle_id", cycleID, "error", err)
		}
	}
	return nil
}

// progressHandle returns the cycle's existing sink handle, if any.
func (uc *coordinatorUseCase) progressHandle(ctx context.Context, cycleID string) string {
	units, err := uc.units.List(ctx, cycleID)
	if err != nil || len(units) == 0 {
		return ""
	}
	return units[0].ProgressHandle
}

// ensureProgressHandle opens a sink record on first use and persists the
// handle so later invocations reuse it.
func (uc *coordinatorUseCase) ensureProgressHandle(ctx context.Context, cycleID string) string {
	if handle := uc.progressHandle(ctx, cycleID); handle != "" {
		return handle
	}
	handle, err := uc.sink.Open(ctx, cycleID)
	if err != nil {
		slog.Warn("Failed to open progress record", "cycle_id", cycleID, "error", err)
		return ""
	}
	if err := uc.units.SetProgressHandle(ctx, cycleID, handle); err != nil {
		slog.Warn("Failed to persist progress handle", "cycle_id", cycleID, "error", err)
	}
	return handle
}

func (uc *coordinatorUseCase) RunBatch(ctx context.Context, batchSize int) (*entity.CycleProgress, error) {
	cycleID, err := uc.GetOrCreateCycle(ctx)
	if err != nil {
		return nil, err
	}

	if reclaimed, err := uc.units.ReclaimStale(ctx, cycleID, uc.cfg.StaleClaimAfter); err != nil {
		slog.Warn("Stale claim reclamation failed", "cycle_id", cycleID, "error", err)
	} else if reclaimed > 0 {
		slog.Info("Reclaimed stale units", "cycle_id", cycleID, "reclaimed", reclaimed)
	}

	progress, err := uc.CycleProgress(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	metrics.SetCycleProgress(progress.Completed, progress.Processing, progress.Pending, progress.Failed)

	if progress.IsComplete() {
		if err := uc.closeCycle(ctx, cycleID, *progress); err != nil {
			slog.Warn("Cycle close failed", "cycle_id", cycleID, "error", err)
		}
		return progress, nil
	}

	handle := uc.ensureProgressHandle(ctx, cycleID)

	claimed, err := uc.ClaimNextBatch(ctx, cycleID, batchSize)
	if err != nil {
		return nil, err
	}
	if len(claimed) == 0 {
		slog.Info("No pending units to claim", "cycle_id", cycleID)
		return progress, nil
	}
	slog.Info("Claimed country units", "cycle_id", cycleID, "countries", claimed)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.UnitConcurrency)
	for _, country := range claimed {
		g.Go(func() error {
			uc.processUnit(gctx, cycleID, country)
			return nil
		})
	}
	g.Wait()

	// The invocation context may be exhausted by now; finish bookkeeping
	// on a detached context.
	tailCtx := context.WithoutCancel(ctx)
	progress, err = uc.CycleProgress(tailCtx, cycleID)
	if err != nil {
		return nil, err
	}
	metrics.SetCycleProgress(progress.Completed, progress.Processing, progress.Pending, progress.Failed)

	if handle != "" {
		if err := uc.sink.Update(tailCtx, handle, *progress); err != nil {
			slog.Warn("Failed to publish progress", "cycle_id", cycleID, "error", err)
		}
	}
	if progress.IsComplete() {
		if err := uc.closeCycle(tailCtx, cycleID, *progress); err != nil {
			slog.Warn("Cycle close failed", "cycle_id", cycleID, "error", err)
		}
	}
	return progress, nil
}

// processUnit runs one claimed country and reports its outcome. A failure
// in one country never aborts the others; a country aborted by the
// execution budget is released back to pending for the next invocation.
func (uc *coordinatorUseCase) processUnit(ctx context.Context, cycleID, country string) {
	reportCtx := context.WithoutCancel(ctx)

	if uc.budgetExhausted(ctx) {
		uc.release(reportCtx, cycleID, country)
		return
	}

	summary, err := uc.scanner.ScanCountry(ctx, country)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Nothing was persisted for this country; give the claim back.
			uc.release(reportCtx, cycleID, country)
			return
		}
		slog.Error("Country scan failed", "cycle_id", cycleID, "country", country, "error", err)
		if rerr := uc.ReportUnitOutcome(reportCtx, cycleID, country, entity.UnitStatusFailed, err.Error(), nil); rerr != nil {
			slog.Error("Failed to report unit failure", "cycle_id", cycleID, "country", country, "error", rerr)
		}
		return
	}

	if err := uc.ReportUnitOutcome(reportCtx, cycleID, country, entity.UnitStatusCompleted, "", summary); err != nil {
		slog.Error("Failed to report unit completion", "cycle_id", cycleID, "country", country, "error", err)
	}
}

func (uc *coordinatorUseCase) release(ctx context.Context, cycleID, country string) {
	if err := uc.units.Release(ctx, cycleID, country); err != nil {
		slog.Error("Failed to release unit", "cycle_id", cycleID, "country", country, "error", err)
		return
	}
	slog.Info("Released unstarted unit back to pending", "cycle_id", cycleID, "country", country)
}

func (uc *coordinatorUseCase) budgetExhausted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		return false
	}
	return time.Until(deadline) < uc.cfg.ShutdownMargin
}
