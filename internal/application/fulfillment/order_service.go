package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/logger"
)

const (
	defaultSubmissionLimit = 50
	maxSubmissionLimit     = 200
)

// OrderService exposes standard-path orders and the dispatch audit log to the studio
type OrderService struct {
	orders      domain.OrderRepository
	submissions domain.SubmissionRepository
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders domain.OrderRepository, submissions domain.SubmissionRepository, log *zap.Logger) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderService{
		orders:      orders,
		submissions: submissions,
		logger:      log.Named("orders"),
	}
}

// ListOrders returns a page of the studio's orders
func (s *OrderService) ListOrders(ctx context.Context, studioID uuid.UUID, filter domain.OrderFilter) ([]OrderView, int64, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, domain.ErrInvalidOrderStatus
	}
	orders, total, err := s.orders.FindByStudio(ctx, studioID, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]OrderView, len(orders))
	for i := range orders {
		views[i] = ToOrderView(&orders[i])
	}
	return views, total, nil
}

// GetOrder returns one order
func (s *OrderService) GetOrder(ctx context.Context, studioID, id uuid.UUID) (*OrderView, error) {
	order, err := s.orders.FindByID(ctx, studioID, id)
	if err != nil {
		return nil, err
	}
	view := ToOrderView(order)
	return &view, nil
}

// MarkFulfilled records that the studio shipped a pending order
func (s *OrderService) MarkFulfilled(ctx context.Context, studioID, id uuid.UUID) (*OrderView, error) {
	return s.transition(ctx, studioID, id, "fulfilled", (*domain.Order).MarkFulfilled)
}

// Cancel cancels a pending order
func (s *OrderService) Cancel(ctx context.Context, studioID, id uuid.UUID) (*OrderView, error) {
	return s.transition(ctx, studioID, id, "cancelled", (*domain.Order).Cancel)
}

func (s *OrderService) transition(
	ctx context.Context,
	studioID, id uuid.UUID,
	action string,
	apply func(*domain.Order) error,
) (*OrderView, error) {
	order, err := s.orders.FindByID(ctx, studioID, id)
	if err != nil {
		return nil, err
	}
	if err := apply(order); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	logger.Enrich(ctx, s.logger).Info("Order "+action,
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
	)
	view := ToOrderView(order)
	return &view, nil
}

// RecentSubmissions returns the newest dispatch records of the studio
func (s *OrderService) RecentSubmissions(ctx context.Context, studioID uuid.UUID, limit int) ([]SubmissionView, error) {
	switch {
	case limit <= 0:
		limit = defaultSubmissionLimit
	case limit > maxSubmissionLimit:
		limit = maxSubmissionLimit
	}
	records, err := s.submissions.FindRecent(ctx, studioID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]SubmissionView, len(records))
	for i, r := range records {
		views[i] = SubmissionView{
			CheckoutID:      r.CheckoutID,
			Provider:        r.Provider,
			Status:          r.Status,
			ExternalOrderID: r.ExternalOrderID,
			Message:         r.Message,
			ItemCount:       r.ItemCount,
			Subtotal:        r.Subtotal,
			CreatedAt:       r.CreatedAt,
		}
	}
	return views, nil
}
