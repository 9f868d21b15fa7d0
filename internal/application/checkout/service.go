// Package checkout dispatches a cart to exactly one fulfillment path.
package checkout

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/domain/shared"
	"github.com/photolab/backend/internal/infrastructure/logger"
	"github.com/photolab/backend/internal/infrastructure/telemetry"
)

// ProviderLookup returns the adapter registered for a provider
type ProviderLookup interface {
	Get(code domain.ProviderCode) (domain.FulfillmentProvider, error)
}

// MetricsRecorder records dispatch outcomes
type MetricsRecorder interface {
	RecordCheckout(ctx context.Context, provider string, success bool, d time.Duration)
}

// ProcessCheckoutInput is a cart ready to be placed
type ProcessCheckoutInput struct {
	StudioID        uuid.UUID         `validate:"required"`
	Customer        domain.Customer   `validate:"required"`
	Items           []domain.CartItem `validate:"required,min=1"`
	ShippingAddress domain.ShippingAddress
	// ROESSession is the bridge session opened by the storefront; the ROES path needs it
	ROESSession string `validate:"max=128"`
}

// CheckoutResult is returned when the selected provider accepted the order
type CheckoutResult struct {
	CheckoutID     uuid.UUID
	Success        bool
	Provider       domain.ProviderCode
	OrderID        string
	ConfirmationID string
	Message        string
}

// Service selects the fulfillment path for a checkout and submits the order.
// The path is chosen once by static priority; a failing provider is never
// retried and never replaced by the next one.
type Service struct {
	settings      domain.SettingsProvider
	providers     ProviderLookup
	events        shared.EventPublisher
	metrics       MetricsRecorder
	defaults      domain.AddressDefaults
	submitTimeout time.Duration
	validate      *validator.Validate
	logger        *zap.Logger
}

// Option configures the Service
type Option func(*Service)

// WithMetrics records every dispatch
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAddressDefaults sets the values used for empty shipping address fields
func WithAddressDefaults(d domain.AddressDefaults) Option {
	return func(s *Service) { s.defaults = d }
}

// WithSubmitTimeout bounds the provider call
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Service) { s.submitTimeout = d }
}

// NewService creates a checkout service
func NewService(
	settings domain.SettingsProvider,
	providers ProviderLookup,
	events shared.EventPublisher,
	log *zap.Logger,
	opts ...Option,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		settings:  settings,
		providers: providers,
		events:    events,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log.Named("checkout"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessCheckout validates the cart, selects the first enabled lab in
// priority order (WHCC, Mpix, ROES, then the standard path) and submits
// the order to it once.
func (s *Service) ProcessCheckout(ctx context.Context, input ProcessCheckoutInput) (*CheckoutResult, error) {
	if len(input.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	cart := domain.Cart(input.Items)
	if err := cart.Validate(); err != nil {
		return nil, err
	}
	if err := input.Customer.Validate(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "process",
		telemetry.SpanAttrStudioID, input.StudioID.String(),
		telemetry.SpanAttrItemCount, len(cart),
	)
	defer span.End()
	log := logger.Enrich(ctx, s.logger)

	settings, err := s.settings.Load(ctx, input.StudioID)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("Failed to load provider settings", zap.Error(err))
		return nil, err
	}

	route := settings.SelectRoute()
	checkoutID := uuid.New()
	telemetry.SetAttributes(span, telemetry.SpanAttrProvider, route.Provider.String())
	log = log.With(
		zap.String("checkout_id", checkoutID.String()),
		zap.String("provider", route.Provider.String()),
	)

	provider, err := s.providers.Get(route.Provider)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("No adapter for selected provider", zap.Error(err))
		s.publish(ctx, domain.NewCheckoutFailedEvent(checkoutID, input.StudioID, route.Provider, err.Error(), cart))
		return nil, &CheckoutError{CheckoutID: checkoutID, Provider: route.Provider, Err: err}
	}

	req := domain.SubmitRequest{
		CheckoutID:      checkoutID,
		StudioID:        input.StudioID,
		Items:           cart,
		Customer:        input.Customer,
		ShippingAddress: input.ShippingAddress.WithDefaults(input.Customer, s.defaults),
		Settings:        route.Settings,
		ROESSession:     input.ROESSession,
	}

	result, elapsed, err := s.submit(ctx, provider, req)
	if s.metrics != nil {
		s.metrics.RecordCheckout(ctx, route.Provider.String(), err == nil, elapsed)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		log.Warn("Checkout rejected by provider",
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		s.publish(ctx, domain.NewCheckoutFailedEvent(checkoutID, input.StudioID, route.Provider, err.Error(), cart))
		return nil, &CheckoutError{CheckoutID: checkoutID, Provider: route.Provider, Err: err}
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, result.OrderID)
	log.Info("Checkout submitted",
		zap.String("order_id", result.OrderID),
		zap.Int("items", len(cart)),
		zap.String("subtotal", cart.Subtotal().StringFixed(2)),
		zap.Duration("elapsed", elapsed),
	)
	s.publish(ctx, domain.NewCheckoutSubmittedEvent(checkoutID, input.StudioID, result, cart))

	return &CheckoutResult{
		CheckoutID:     checkoutID,
		Success:        true,
		Provider:       route.Provider,
		OrderID:        result.OrderID,
		ConfirmationID: result.ConfirmationID,
		Message:        result.Message,
	}, nil
}

func (s *Service) submit(ctx context.Context, provider domain.FulfillmentProvider, req domain.SubmitRequest) (*domain.OrderResult, time.Duration, error) {
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}
	start := time.Now()
	result, err := provider.Submit(ctx, req)
	elapsed := time.Since(start)
	if err == nil && result == nil {
		err = domain.ErrProviderInvalidResponse
	}
	return result, elapsed, err
}

// publish reports the outcome. The checkout already happened, so a
// publishing failure is logged and not returned.
func (s *Service) publish(ctx context.Context, e shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Failed to publish checkout event",
			zap.String("event_type", e.EventType()),
			zap.Error(err),
		)
	}
}
