package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/photolab/backend/internal/infrastructure/cache"
)

const revokedKeyPrefix = "token:revoked:"

// TokenBlacklist invalidates tokens before they expire
type TokenBlacklist interface {
	// Revoke blacklists a token ID until ttl elapses
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether a token ID is blacklisted
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// CacheTokenBlacklist stores revoked token IDs in the shared cache,
// so a revocation is seen by every instance when redis is configured.
type CacheTokenBlacklist struct {
	store cache.TokenStore
}

// NewCacheTokenBlacklist creates a blacklist on top of a token store
func NewCacheTokenBlacklist(store cache.TokenStore) *CacheTokenBlacklist {
	return &CacheTokenBlacklist{store: store}
}

// Revoke blacklists the token ID. A non-positive ttl is a no-op: the token already expired.
func (b *CacheTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := b.store.Set(ctx, revokedKeyPrefix+jti, "1", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks the blacklist
func (b *CacheTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := b.store.Get(ctx, revokedKeyPrefix+jti)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cache.ErrCacheMiss):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
}

// Ensure CacheTokenBlacklist implements TokenBlacklist
var _ TokenBlacklist = (*CacheTokenBlacklist)(nil)
