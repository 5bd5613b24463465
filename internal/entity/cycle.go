package entity

import "time"

// UnitStatus is the lifecycle state of one country unit within a cycle.
// A unit only moves forward: pending -> processing -> completed|failed.
type UnitStatus string

const (
	UnitStatusPending    UnitStatus = "pending"
	UnitStatusProcessing UnitStatus = "processing"
	UnitStatusCompleted  UnitStatus = "completed"
	UnitStatusFailed     UnitStatus = "failed"
)

// ValidationCycle identifies one full pass over all countries. At most one
// cycle is open (ClosedAt == nil) at any time.
type ValidationCycle struct {
	CycleID   string
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// CountryUnit is the claimable per-country slice of work within a cycle.
type CountryUnit struct {
	CycleID        string
	CountryCode    string
	Status         UnitStatus
	StartedAt      *time.Time
	CompletedAt    *time.Time
	ErrorSummary   string
	ProgressHandle string
	Summary        *ScanSummary
}

// CycleProgress is a point-in-time aggregate over a cycle's units.
type CycleProgress struct {
	CycleID    string `json:"cycle_id"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
	Processing int    `json:"processing"`
	Pending    int    `json:"pending"`
	Failed     int    `json:"failed"`
}

// IsComplete reports whether every unit has reached a terminal status.
// Failed units count as terminal; they are retried only by a future cycle.
func (p CycleProgress) IsComplete() bool {
	return p.Total > 0 && p.Pending == 0 && p.Processing == 0
}
