package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/validator-service/internal/entity"
)

// ErrUnitNotProcessing is returned when an outcome is reported for a unit
// that is not currently in the processing state. It guards against
// double-reporting.
var ErrUnitNotProcessing = errors.New("country unit is not in processing state")

// UnitRepository manages the per-country work units of a cycle. ClaimNext
// and ReportOutcome are the only operations that require transactional
// semantics against the store.
type UnitRepository interface {
	// CreateBatch inserts a pending unit for every given country.
	CreateBatch(ctx context.Context, cycleID string, countries []string) error
	// ClaimNext atomically transitions up to n pending units to processing
	// and returns their country codes. Concurrent callers never receive
	// overlapping sets.
	ClaimNext(ctx context.Context, cycleID string, n int) ([]string, error)
	// Release returns a processing unit to pending without recording an
	// outcome. Used when an execution gives a claimed unit back unstarted.
	Release(ctx context.Context, cycleID, country string) error
	// ReportOutcome transitions a processing unit to completed or failed.
	// Returns ErrUnitNotProcessing if the unit is in any other state.
	ReportOutcome(ctx context.Context, cycleID, country string, status entity.UnitStatus, errorSummary string, summary *entity.ScanSummary) error
	// ReclaimStale returns units stuck in processing longer than olderThan
	// back to pending, reporting how many were reclaimed.
	ReclaimStale(ctx context.Context, cycleID string, olderThan time.Duration) (int, error)
	// Progress aggregates unit counts by status for a cycle.
	Progress(ctx context.Context, cycleID string) (*entity.CycleProgress, error)
	// List returns all units of a cycle ordered by country code.
	List(ctx context.Context, cycleID string) ([]entity.CountryUnit, error)
	// SetProgressHandle records the opaque progress-sink reference on every
	// unit of the cycle.
	SetProgressHandle(ctx context.Context, cycleID, handle string) error
}
