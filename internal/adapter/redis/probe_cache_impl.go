package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/validator-service/pkg/utils"
)

const probedURLPrefix = "probed:"

// ProbeCacheImpl provides a concrete implementation for the ProbeCache interface using Redis.
type ProbeCacheImpl struct {
	client *redis.Client
}

// NewProbeCache creates a new instance of ProbeCacheImpl.
func NewProbeCache(client *redis.Client) *ProbeCacheImpl {
	return &ProbeCacheImpl{client: client}
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *ProbeCacheImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", probedURLPrefix, utils.HashURL(url))
}

// Seen checks whether the URL was probed within the dedup window.
func (r *ProbeCacheImpl) Seen(ctx context.Context, url string) (bool, error) {
	val, err := r.client.Exists(ctx, r.generateKey(url)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// MarkProbed records the probe with an expiry. SETEX is atomic.
func (r *ProbeCacheImpl) MarkProbed(ctx context.Context, url string, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.generateKey(url), "1", expiry).Err()
}
