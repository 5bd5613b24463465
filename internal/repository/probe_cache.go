package repository

import (
	"context"
	"time"
)

// ProbeCache deduplicates probes across records that share a canonical URL.
// Cache failures are advisory; callers log and proceed without it.
type ProbeCache interface {
	// Seen reports whether the URL was probed within the dedup window.
	Seen(ctx context.Context, url string) (bool, error)
	// MarkProbed records that the URL was just probed, with an expiry.
	MarkProbed(ctx context.Context, url string, expiry time.Duration) error
}
