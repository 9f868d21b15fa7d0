package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/domain/shared"
	"github.com/photolab/backend/internal/infrastructure/logger"
)

// FulfillmentEventLogger writes one structured line per checkout outcome
type FulfillmentEventLogger struct {
	logger *zap.Logger
}

// NewFulfillmentEventLogger creates the logger handler
func NewFulfillmentEventLogger(log *zap.Logger) *FulfillmentEventLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &FulfillmentEventLogger{logger: log.Named("fulfillment_events")}
}

// EventTypes returns the checkout event types
func (h *FulfillmentEventLogger) EventTypes() []string {
	return []string{domain.EventTypeCheckoutSubmitted, domain.EventTypeCheckoutFailed}
}

// Handle logs the event
func (h *FulfillmentEventLogger) Handle(ctx context.Context, e shared.DomainEvent) error {
	log := logger.Enrich(ctx, h.logger).With(
		zap.String("event_id", e.EventID().String()),
		zap.String("checkout_id", e.AggregateID().String()),
		zap.String("studio_id", e.StudioID().String()),
	)
	switch ev := e.(type) {
	case *domain.CheckoutSubmittedEvent:
		log.Info("Order dispatched",
			zap.String("provider", ev.Provider.String()),
			zap.String("order_id", ev.OrderID),
			zap.Int("items", ev.ItemCount),
			zap.String("subtotal", ev.Subtotal.StringFixed(2)),
		)
	case *domain.CheckoutFailedEvent:
		log.Warn("Order dispatch failed",
			zap.String("provider", ev.Provider.String()),
			zap.String("reason", ev.Reason),
			zap.Int("items", ev.ItemCount),
		)
	default:
		log.Debug("Ignoring event", zap.String("event_type", e.EventType()))
	}
	return nil
}

// SubmissionRecorder persists the audit record of every dispatch
type SubmissionRecorder struct {
	repo domain.SubmissionRepository
}

// NewSubmissionRecorder creates the recorder handler
func NewSubmissionRecorder(repo domain.SubmissionRepository) *SubmissionRecorder {
	return &SubmissionRecorder{repo: repo}
}

// EventTypes returns the checkout event types
func (h *SubmissionRecorder) EventTypes() []string {
	return []string{domain.EventTypeCheckoutSubmitted, domain.EventTypeCheckoutFailed}
}

// Handle converts the event into a Submission and saves it
func (h *SubmissionRecorder) Handle(ctx context.Context, e shared.DomainEvent) error {
	var s *domain.Submission
	switch ev := e.(type) {
	case *domain.CheckoutSubmittedEvent:
		s = &domain.Submission{
			Provider:        ev.Provider,
			Status:          domain.SubmissionSucceeded,
			ExternalOrderID: ev.OrderID,
			ItemCount:       ev.ItemCount,
			Subtotal:        ev.Subtotal,
		}
	case *domain.CheckoutFailedEvent:
		s = &domain.Submission{
			Provider:  ev.Provider,
			Status:    domain.SubmissionFailed,
			Message:   ev.Reason,
			ItemCount: ev.ItemCount,
			Subtotal:  ev.Subtotal,
		}
	default:
		return nil
	}
	s.CheckoutID = e.AggregateID()
	s.StudioID = e.StudioID()
	s.CreatedAt = e.OccurredAt()

	if err := h.repo.Save(ctx, s); err != nil {
		return fmt.Errorf("record submission %s: %w", s.CheckoutID, err)
	}
	return nil
}
