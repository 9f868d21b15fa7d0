package cache

import (
	"context"
	"fmt"

	"github.com/photolab/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Factory picks a Store implementation from configuration
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store instead of failing. Defaults to true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new Factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise an in-memory store
func (f *Factory) CreateStore(ctx context.Context) (Store, error) {
	if !f.cfg.Enabled {
		f.logger.Info("Redis disabled, using in-memory cache")
		return NewInMemoryStore(), nil
	}

	client, err := NewRedisClient(ctx, f.cfg)
	if err == nil {
		f.logger.Info("Using Redis cache", zap.String("addr", f.cfg.Addr()))
		return NewRedisStore(client, defaultKeyPrefix), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory cache. "+
		"Tokens and idempotency keys will not be shared across instances.",
		zap.Error(err),
	)
	return NewInMemoryStore(), nil
}
