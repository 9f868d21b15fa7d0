// Package cache provides short-lived key/value storage shared by the
// fulfillment adapters (access tokens) and the event handlers (idempotency keys).
// Redis is used when configured; otherwise an in-process store is used.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/photolab/backend/internal/domain/shared"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache: miss")

// TokenStore caches opaque strings with a TTL
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Store is a TokenStore that also tracks processed keys
type Store interface {
	TokenStore
	shared.IdempotencyStore
	Close() error
}
