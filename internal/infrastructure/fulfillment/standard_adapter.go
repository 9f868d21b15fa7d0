package fulfillment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
)

// StandardAdapter stores the order for the studio to fulfil by hand
type StandardAdapter struct {
	orders domain.OrderRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewStandardAdapter creates the standard path adapter
func NewStandardAdapter(orders domain.OrderRepository, logger *zap.Logger) *StandardAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandardAdapter{
		orders: orders,
		now:    time.Now,
		logger: logger.Named("standard"),
	}
}

// Code returns the provider code
func (a *StandardAdapter) Code() domain.ProviderCode {
	return domain.ProviderStandard
}

// Submit persists a pending order
func (a *StandardAdapter) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.OrderResult, error) {
	order, err := domain.NewOrder(req.StudioID, req.Customer, req.ShippingAddress, domain.Cart(req.Items))
	if err != nil {
		return nil, err
	}
	if err := a.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	a.logger.Info("Order stored for studio fulfilment",
		zap.String("studio_id", req.StudioID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
	)

	return &domain.OrderResult{
		Provider:       domain.ProviderStandard,
		OrderID:        order.ID.String(),
		ConfirmationID: order.OrderNumber,
		Message:        "Order placed",
		SubmittedAt:    a.now().UTC(),
	}, nil
}
