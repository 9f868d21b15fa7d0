package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which keys were already processed
type IdempotencyStore interface {
	// MarkProcessed atomically marks the key. It returns false when the key
	// was already marked and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
}

// IdempotencyConfig controls duplicate-event suppression
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DefaultIdempotencyConfig keeps keys for 24 hours
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}
