// Package progress provides ProgressSink adapters. The core only depends
// on the narrow sink contract; log and webhook implementations live here.
package progress

import (
	"context"
	"log/slog"

	"github.com/user/validator-service/internal/entity"
)

// LogSink reports cycle progress to the structured log. It is the default
// sink when no external notification mechanism is configured.
type LogSink struct{}

// NewLogSink creates a new LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Open returns the cycle ID itself as the handle; the log needs no record.
func (s *LogSink) Open(ctx context.Context, cycleID string) (string, error) {
	slog.Info("Validation cycle progress tracking started", "cycle_id", cycleID)
	return cycleID, nil
}

// Update logs a progress snapshot.
func (s *LogSink) Update(ctx context.Context, handle string, progress entity.CycleProgress) error {
	slog.Info("Validation cycle progress",
		"cycle_id", handle,
		"total", progress.Total,
		"completed", progress.Completed,
		"processing", progress.Processing,
		"pending", progress.Pending,
		"failed", progress.Failed,
	)
	return nil
}

// Close logs the final snapshot.
func (s *LogSink) Close(ctx context.Context, handle string, progress entity.CycleProgress) error {
	slog.Info("Validation cycle complete",
		"cycle_id", handle,
		"total", progress.Total,
		"completed", progress.Completed,
		"failed", progress.Failed,
	)
	return nil
}
