package event

import (
	"context"
	"sync/atomic"

	"github.com/photolab/backend/internal/domain/shared"
	"github.com/photolab/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// IdempotencyMetrics counts outcomes of an IdempotentHandler
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// IdempotencyStats is a snapshot of IdempotencyMetrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// Stats returns a snapshot of the counters
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotentHandler runs the wrapped handler at most once per event ID.
// Keys are namespaced by handler name so several handlers can share a store.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default TTL and enablement
func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = cfg
	}
}

// NewIdempotentHandler wraps handler under the given name
func NewIdempotentHandler(
	name string,
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle marks the event and runs the wrapped handler when it is new.
// A store failure does not block processing: a duplicate is preferred over a lost event.
func (h *IdempotentHandler) Handle(ctx context.Context, e shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, e)
	}

	log := logger.Enrich(ctx, h.logger).With(
		zap.String("handler", h.name),
		zap.String("event_id", e.EventID().String()),
		zap.String("event_type", e.EventType()),
	)

	key := "event:" + h.name + ":" + e.EventID().String()
	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		log.Warn("idempotency check failed, processing anyway", zap.Error(err))
	case !isNew:
		h.metrics.EventsDuplicate.Add(1)
		log.Debug("duplicate event skipped")
		return nil
	}

	if err := h.handler.Handle(ctx, e); err != nil {
		// The key is kept so a redelivery storm does not hammer a failing handler.
		h.metrics.EventsFailed.Add(1)
		return err
	}
	h.metrics.EventsProcessed.Add(1)
	return nil
}

// Metrics returns the handler's counters
func (h *IdempotentHandler) Metrics() *IdempotencyMetrics {
	return h.metrics
}

// Ensure IdempotentHandler implements EventHandler
var _ shared.EventHandler = (*IdempotentHandler)(nil)
