package fulfillment

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/photolab/backend/internal/domain/shared"
)

const (
	// AggregateTypeCheckout is the aggregate type of checkout events
	AggregateTypeCheckout = "Checkout"

	EventTypeCheckoutSubmitted = "CheckoutSubmitted"
	EventTypeCheckoutFailed    = "CheckoutFailed"
)

// CheckoutSubmittedEvent is published when a provider accepted the order
type CheckoutSubmittedEvent struct {
	shared.BaseDomainEvent
	Provider       ProviderCode    `json:"provider"`
	OrderID        string          `json:"order_id"`
	ConfirmationID string          `json:"confirmation_id,omitempty"`
	ItemCount      int             `json:"item_count"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// NewCheckoutSubmittedEvent creates a CheckoutSubmitted event
func NewCheckoutSubmittedEvent(checkoutID, studioID uuid.UUID, result *OrderResult, cart Cart) *CheckoutSubmittedEvent {
	return &CheckoutSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCheckoutSubmitted, AggregateTypeCheckout, checkoutID, studioID),
		Provider:        result.Provider,
		OrderID:         result.OrderID,
		ConfirmationID:  result.ConfirmationID,
		ItemCount:       len(cart),
		Subtotal:        cart.Subtotal(),
	}
}

// CheckoutFailedEvent is published when the selected provider rejected the order
type CheckoutFailedEvent struct {
	shared.BaseDomainEvent
	Provider  ProviderCode    `json:"provider"`
	Reason    string          `json:"reason"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewCheckoutFailedEvent creates a CheckoutFailed event
func NewCheckoutFailedEvent(checkoutID, studioID uuid.UUID, provider ProviderCode, reason string, cart Cart) *CheckoutFailedEvent {
	return &CheckoutFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCheckoutFailed, AggregateTypeCheckout, checkoutID, studioID),
		Provider:        provider,
		Reason:          reason,
		ItemCount:       len(cart),
		Subtotal:        cart.Subtotal(),
	}
}
