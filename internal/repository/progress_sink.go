package repository

import (
	"context"

	"github.com/user/validator-service/internal/entity"
)

// ProgressSink is the narrow contract for external progress reporting.
// Any notification mechanism (log, webhook, ticket) satisfies it; the core
// never depends on a specific tracker's API.
type ProgressSink interface {
	// Open creates a progress record for a cycle and returns its opaque handle.
	Open(ctx context.Context, cycleID string) (string, error)
	// Update publishes a progress snapshot.
	Update(ctx context.Context, handle string, progress entity.CycleProgress) error
	// Close finalizes the progress record with the last snapshot.
	Close(ctx context.Context, handle string, progress entity.CycleProgress) error
}
