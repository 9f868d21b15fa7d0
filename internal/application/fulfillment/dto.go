package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
)

// ProviderView is a lab configuration as shown in the admin portal.
// Credentials are always masked.
type ProviderView struct {
	Provider       domain.ProviderCode `json:"provider"`
	DisplayName    string              `json:"display_name"`
	Enabled        bool                `json:"enabled"`
	Sandbox        bool                `json:"sandbox"`
	Active         bool                `json:"active"`
	HasCredentials bool                `json:"has_credentials"`
	Credentials    domain.Credentials  `json:"credentials"`
	UpdatedAt      *time.Time          `json:"updated_at,omitempty"`
}

// ProviderSettingsView lists every lab of a studio in priority order
type ProviderSettingsView struct {
	StudioID uuid.UUID           `json:"studio_id"`
	Route    domain.ProviderCode `json:"route"`
	Labs     []ProviderView      `json:"labs"`
}

// UpdateProviderInput changes the configuration of one lab.
// Nil fields are left unchanged; empty credential fields keep the stored value.
type UpdateProviderInput struct {
	Enabled     *bool
	Sandbox     *bool
	Credentials *domain.Credentials
}

// OrderView is a standard-path order
type OrderView struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	Status          domain.OrderStatus     `json:"status"`
	Customer        domain.Customer        `json:"customer"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	Items           []OrderItemView        `json:"items"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// OrderItemView is one line of an order
type OrderItemView struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SizeName    string          `json:"size_name,omitempty"`
	PhotoIDs    []string        `json:"photo_ids"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ToOrderView converts the domain order
func ToOrderView(o *domain.Order) OrderView {
	items := make([]OrderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemView{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SizeName:    it.SizeName,
			PhotoIDs:    it.PhotoIDs,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
	}
	return OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		Customer:        o.Customer,
		ShippingAddress: o.ShippingAddress,
		Items:           items,
		Subtotal:        o.Subtotal,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// SubmissionView is one entry of the dispatch audit log
type SubmissionView struct {
	CheckoutID      uuid.UUID               `json:"checkout_id"`
	Provider        domain.ProviderCode     `json:"provider"`
	Status          domain.SubmissionStatus `json:"status"`
	ExternalOrderID string                  `json:"external_order_id,omitempty"`
	Message         string                  `json:"message,omitempty"`
	ItemCount       int                     `json:"item_count"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	CreatedAt       time.Time               `json:"created_at"`
}
