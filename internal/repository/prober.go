package repository

import (
	"context"

	"github.com/user/validator-service/internal/entity"
)

// Prober issues exactly one validation probe per call; no internal retry.
// Transport-level failures are classified into the returned Outcome, never
// surfaced as errors. An error is returned only when the probe could not
// be attempted at all (e.g. the context is already done).
type Prober interface {
	Probe(ctx context.Context, url string) (entity.Outcome, error)
}
