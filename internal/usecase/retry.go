package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/user/validator-service/internal/repository"
)

const (
	retryAttempts       = 3
	retryInitialBackoff = 200 * time.Millisecond
	retryJitterFactor   = 0.2 // +/- 20%
)

// withRetry retries a store operation with jittered exponential backoff.
// Exhausting the retries fails the current unit of work, never the whole
// invocation. Logic errors (double report, cycle already open) and context
// errors are returned immediately.
func withRetry(ctx context.Context, name string, op func() error) error {
	backoff := retryInitialBackoff
	var err error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == retryAttempts {
			return err
		}
		slog.Warn("Store operation failed, backing off", "operation", name, "attempt", attempt, "error", err)

		jitter := 1 + retryJitterFactor*(2*rand.Float64()-1)
		select {
		case <-time.After(time.Duration(float64(backoff) * jitter)):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, repository.ErrUnitNotProcessing),
		errors.Is(err, repository.ErrCycleOpen),
		errors.Is(err, repository.ErrNoOpenCycle),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
