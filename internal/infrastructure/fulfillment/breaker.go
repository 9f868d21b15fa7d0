package fulfillment

import (
	"errors"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/config"
)

const defaultConsecutiveFailures = 5

// newBreaker builds the breaker guarding one lab. Only transport failures and
// 5xx responses count; a rejected order or bad credentials do not trip it.
// An open breaker short-circuits the call and the checkout fails, it never
// routes to another lab.
func newBreaker(provider domain.ProviderCode, cfg config.BreakerConfig, obs BreakerObserver, logger *zap.Logger) *gobreaker.CircuitBreaker[*rawResponse] {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = defaultConsecutiveFailures
	}
	return gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        string(provider),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrProviderUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if obs != nil {
				obs.RecordBreakerTransition(name, to.String())
			}
		},
	})
}
