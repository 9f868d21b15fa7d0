package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

// ProviderSettingsModel stores one lab configuration per studio.
// Credentials are stored sealed; the provider column is not constrained so
// that rows written by older releases still load.
type ProviderSettingsModel struct {
	StudioID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Provider          string    `gorm:"type:varchar(20);primaryKey"`
	Enabled           bool      `gorm:"not null"`
	Sandbox           bool      `gorm:"not null"`
	SealedCredentials []byte    `gorm:"type:bytea"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProviderSettingsModel) TableName() string {
	return "provider_settings"
}

// ToDomain converts the model to a domain record
func (m *ProviderSettingsModel) ToDomain() fulfillment.ProviderSettingsRecord {
	return fulfillment.ProviderSettingsRecord{
		StudioID:          m.StudioID,
		Provider:          m.Provider,
		Enabled:           m.Enabled,
		Sandbox:           m.Sandbox,
		SealedCredentials: m.SealedCredentials,
		UpdatedAt:         m.UpdatedAt,
	}
}

// ProviderSettingsModelFromDomain converts a domain record to a model
func ProviderSettingsModelFromDomain(r *fulfillment.ProviderSettingsRecord) *ProviderSettingsModel {
	return &ProviderSettingsModel{
		StudioID:          r.StudioID,
		Provider:          r.Provider,
		Enabled:           r.Enabled,
		Sandbox:           r.Sandbox,
		SealedCredentials: r.SealedCredentials,
		UpdatedAt:         r.UpdatedAt,
	}
}

// OrderModel is the persistence model for standard-path orders
type OrderModel struct {
	StudioModel
	OrderNumber       string                      `gorm:"type:varchar(40);not null;uniqueIndex"`
	CustomerID        string                      `gorm:"type:varchar(64)"`
	CustomerFirstName string                      `gorm:"type:varchar(100);not null"`
	CustomerLastName  string                      `gorm:"type:varchar(100);not null"`
	CustomerEmail     string                      `gorm:"type:varchar(255);not null"`
	CustomerPhone     string                      `gorm:"type:varchar(40)"`
	ShippingAddress   fulfillment.ShippingAddress `gorm:"type:jsonb;serializer:json"`
	Subtotal          decimal.Decimal             `gorm:"type:decimal(12,2);not null"`
	Status            string                      `gorm:"type:varchar(20);not null;index"`
	Items             []OrderItemModel            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one line of an order
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	ProductID   string          `gorm:"type:varchar(64);not null"`
	ProductName string          `gorm:"type:varchar(255)"`
	SizeID      string          `gorm:"type:varchar(64)"`
	SizeName    string          `gorm:"type:varchar(100)"`
	PhotoIDs    []string        `gorm:"type:jsonb;serializer:json"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the model to a domain Order
func (m *OrderModel) ToDomain() *fulfillment.Order {
	o := &fulfillment.Order{
		StudioEntity: m.ToDomainStudioEntity(),
		OrderNumber:  m.OrderNumber,
		Customer: fulfillment.Customer{
			ID:        m.CustomerID,
			FirstName: m.CustomerFirstName,
			LastName:  m.CustomerLastName,
			Email:     m.CustomerEmail,
			Phone:     m.CustomerPhone,
		},
		ShippingAddress: m.ShippingAddress,
		Subtotal:        m.Subtotal,
		Status:          fulfillment.OrderStatus(m.Status),
		Items:           make([]fulfillment.OrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		o.Items[i] = fulfillment.OrderItem{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SizeID:      item.SizeID,
			SizeName:    item.SizeName,
			PhotoIDs:    item.PhotoIDs,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	return o
}

// OrderModelFromDomain converts a domain Order to a model
func OrderModelFromDomain(o *fulfillment.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:       o.OrderNumber,
		CustomerID:        o.Customer.ID,
		CustomerFirstName: o.Customer.FirstName,
		CustomerLastName:  o.Customer.LastName,
		CustomerEmail:     o.Customer.Email,
		CustomerPhone:     o.Customer.Phone,
		ShippingAddress:   o.ShippingAddress,
		Subtotal:          o.Subtotal,
		Status:            string(o.Status),
		Items:             make([]OrderItemModel, len(o.Items)),
	}
	m.FromDomainStudioEntity(o.StudioEntity)
	for i, item := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:          item.ID,
			OrderID:     o.ID,
			Position:    i,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SizeID:      item.SizeID,
			SizeName:    item.SizeName,
			PhotoIDs:    item.PhotoIDs,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	return m
}

// SubmissionModel is the audit row of one checkout dispatch
type SubmissionModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CheckoutID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	StudioID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_submissions_studio_created,priority:1"`
	Provider        string          `gorm:"type:varchar(20);not null"`
	Status          string          `gorm:"type:varchar(20);not null"`
	ExternalOrderID string          `gorm:"type:varchar(100)"`
	Message         string          `gorm:"type:text"`
	ItemCount       int             `gorm:"not null"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt       time.Time       `gorm:"not null;index:idx_submissions_studio_created,priority:2"`
}

// TableName returns the table name for GORM
func (SubmissionModel) TableName() string {
	return "fulfillment_submissions"
}

// ToDomain converts the model to a domain Submission
func (m *SubmissionModel) ToDomain() fulfillment.Submission {
	return fulfillment.Submission{
		ID:              m.ID,
		CheckoutID:      m.CheckoutID,
		StudioID:        m.StudioID,
		Provider:        fulfillment.ProviderCode(m.Provider),
		Status:          fulfillment.SubmissionStatus(m.Status),
		ExternalOrderID: m.ExternalOrderID,
		Message:         m.Message,
		ItemCount:       m.ItemCount,
		Subtotal:        m.Subtotal,
		CreatedAt:       m.CreatedAt,
	}
}

// SubmissionModelFromDomain converts a domain Submission to a model
func SubmissionModelFromDomain(s *fulfillment.Submission) *SubmissionModel {
	return &SubmissionModel{
		ID:              s.ID,
		CheckoutID:      s.CheckoutID,
		StudioID:        s.StudioID,
		Provider:        string(s.Provider),
		Status:          string(s.Status),
		ExternalOrderID: s.ExternalOrderID,
		Message:         s.Message,
		ItemCount:       s.ItemCount,
		Subtotal:        s.Subtotal,
		CreatedAt:       s.CreatedAt,
	}
}
