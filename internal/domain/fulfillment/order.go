package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/photolab/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a locally stored order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid returns true if the status is known
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is a cart line frozen into an order
type OrderItem struct {
	ID          uuid.UUID
	ProductID   string
	ProductName string
	SizeID      string
	SizeName    string
	PhotoIDs    []string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Order is a checkout kept by the studio when no external lab is enabled
type Order struct {
	shared.StudioEntity
	OrderNumber     string
	Customer        Customer
	ShippingAddress ShippingAddress
	Items           []OrderItem
	Subtotal        decimal.Decimal
	Status          OrderStatus
}

// NewOrder builds a pending order from a validated cart
func NewOrder(studioID uuid.UUID, customer Customer, address ShippingAddress, cart Cart) (*Order, error) {
	if err := cart.Validate(); err != nil {
		return nil, err
	}
	o := &Order{
		StudioEntity:    shared.NewStudioEntity(studioID),
		Customer:        customer,
		ShippingAddress: address,
		Items:           make([]OrderItem, 0, len(cart)),
		Subtotal:        cart.Subtotal(),
		Status:          OrderStatusPending,
	}
	o.OrderNumber = newOrderNumber(o.CreatedAt, o.ID)
	for _, ci := range cart {
		item := OrderItem{
			ID:          uuid.New(),
			ProductID:   ci.Product.ID,
			ProductName: ci.Product.Name,
			Quantity:    ci.Quantity,
			UnitPrice:   ci.UnitPrice(),
			LineTotal:   ci.LineTotal(),
		}
		if ci.Size != nil {
			item.SizeID = ci.Size.ID
			item.SizeName = ci.Size.Name
		}
		for _, p := range ci.Photos {
			item.PhotoIDs = append(item.PhotoIDs, p.PhotoID)
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

// MarkFulfilled records that the studio shipped the order
func (o *Order) MarkFulfilled() error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot fulfil order in status %s", o.Status))
	}
	o.Status = OrderStatusFulfilled
	o.Touch()
	return nil
}

// Cancel cancels a pending order
func (o *Order) Cancel() error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("cannot cancel order in status %s", o.Status))
	}
	o.Status = OrderStatusCancelled
	o.Touch()
	return nil
}

// PO-20261017-1A2B3C4D
func newOrderNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("PO-%s-%X", at.Format("20060102"), id[:4])
}

// OrderFilter pages through a studio's orders
type OrderFilter struct {
	Status   OrderStatus
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// OrderRepository stores standard-path orders
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, studioID, id uuid.UUID) (*Order, error)
	FindByStudio(ctx context.Context, studioID uuid.UUID, filter OrderFilter) ([]Order, int64, error)
}
