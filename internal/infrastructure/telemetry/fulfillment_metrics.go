package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// FulfillmentMetrics records checkout dispatch outcomes per provider.
type FulfillmentMetrics struct {
	checkouts          *Counter
	submitDuration     *Histogram
	breakerTransitions *Counter
}

// NewFulfillmentMetrics creates the fulfillment instruments on meter.
func NewFulfillmentMetrics(meter metric.Meter) (*FulfillmentMetrics, error) {
	checkouts, err := NewCounter(meter, "checkout_submissions_total", "Checkouts dispatched to a fulfillment provider", "{checkout}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, "checkout_submit_duration_seconds", "Time spent in the provider submit call", "s", ProviderDurationBuckets...)
	if err != nil {
		return nil, err
	}
	transitions, err := NewCounter(meter, "provider_breaker_transitions_total", "Circuit breaker state changes per provider", "{transition}")
	if err != nil {
		return nil, err
	}
	return &FulfillmentMetrics{
		checkouts:          checkouts,
		submitDuration:     duration,
		breakerTransitions: transitions,
	}, nil
}

// RecordCheckout records one dispatch.
func (m *FulfillmentMetrics) RecordCheckout(ctx context.Context, provider string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.checkouts.Inc(ctx, AttrProvider.String(provider), AttrOutcome.String(outcome))
	m.submitDuration.RecordDuration(ctx, d, AttrProvider.String(provider), AttrOutcome.String(outcome))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *FulfillmentMetrics) RecordBreakerTransition(provider, to string) {
	if m == nil {
		return
	}
	m.breakerTransitions.Inc(context.Background(), AttrProvider.String(provider), AttrState.String(to))
}
