package storage

import (
	"context"
	"fmt"

	"github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewPhotoResolver returns the resolver selected by cfg.Driver
func NewPhotoResolver(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (fulfillment.PhotoResolver, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3PhotoResolver(ctx, cfg, WithLogger(logger.Named("storage")))
	case "stub", "":
		logger.Warn("Using stub photo storage; labs will receive placeholder URLs")
		return NewStubPhotoResolver(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
