package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appfulfillment "github.com/photolab/backend/internal/application/fulfillment"
	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/interfaces/http/dto"
)

type MockOrderManager struct {
	mock.Mock
}

func (m *MockOrderManager) ListOrders(ctx context.Context, studioID uuid.UUID, filter domain.OrderFilter) ([]appfulfillment.OrderView, int64, error) {
	args := m.Called(ctx, studioID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]appfulfillment.OrderView), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderManager) GetOrder(ctx context.Context, studioID, id uuid.UUID) (*appfulfillment.OrderView, error) {
	return m.orderResult(m.Called(ctx, studioID, id))
}

func (m *MockOrderManager) MarkFulfilled(ctx context.Context, studioID, id uuid.UUID) (*appfulfillment.OrderView, error) {
	return m.orderResult(m.Called(ctx, studioID, id))
}

func (m *MockOrderManager) Cancel(ctx context.Context, studioID, id uuid.UUID) (*appfulfillment.OrderView, error) {
	return m.orderResult(m.Called(ctx, studioID, id))
}

func (m *MockOrderManager) orderResult(args mock.Arguments) (*appfulfillment.OrderView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfulfillment.OrderView), args.Error(1)
}

func (m *MockOrderManager) RecentSubmissions(ctx context.Context, studioID uuid.UUID, limit int) ([]appfulfillment.SubmissionView, error) {
	args := m.Called(ctx, studioID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appfulfillment.SubmissionView), args.Error(1)
}

func newOrderRouter(orders OrderManager) http.Handler {
	h := NewOrderHandler(orders)
	router := newTestRouter(testStudioID)
	router.GET("/api/v1/orders", h.ListOrders)
	router.GET("/api/v1/orders/:id", h.GetOrder)
	router.POST("/api/v1/orders/:id/fulfill", h.MarkFulfilled)
	router.POST("/api/v1/orders/:id/cancel", h.Cancel)
	router.GET("/api/v1/admin/submissions", h.ListSubmissions)
	return router
}

func sampleOrderView(status domain.OrderStatus) *appfulfillment.OrderView {
	return &appfulfillment.OrderView{
		ID:          uuid.New(),
		OrderNumber: "ORD-20261017-0001",
		Status:      status,
		Customer:    domain.Customer{FirstName: "A", LastName: "B", Email: "a@b.com"},
		Subtotal:    decimal.RequireFromString("19.98"),
		CreatedAt:   time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
}

func TestOrderHandler_ListOrders(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		orders := new(MockOrderManager)
		orders.On("ListOrders", mock.Anything, testStudioID, domain.OrderFilter{Page: 1, PageSize: 20}).
			Return([]appfulfillment.OrderView{*sampleOrderView(domain.OrderStatusPending)}, int64(1), nil)

		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/orders", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Equal(t, 1, resp.Meta.TotalPages)

		var views []appfulfillment.OrderView
		decodeData(t, w, &views)
		require.Len(t, views, 1)
		assert.Equal(t, "ORD-20261017-0001", views[0].OrderNumber)
		orders.AssertExpectations(t)
	})

	t.Run("status filter and paging", func(t *testing.T) {
		orders := new(MockOrderManager)
		orders.On("ListOrders", mock.Anything, testStudioID, domain.OrderFilter{
			Status: domain.OrderStatusFulfilled, Page: 2, PageSize: 5, OrderBy: "subtotal", OrderDir: "asc",
		}).Return([]appfulfillment.OrderView{}, int64(6), nil)

		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/orders?status=FULFILLED&page=2&page_size=5&order_by=subtotal&order_dir=asc", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, decodeResponse(t, w).Meta.TotalPages)
		orders.AssertExpectations(t)
	})

	t.Run("unknown status", func(t *testing.T) {
		orders := new(MockOrderManager)
		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/orders?status=SHIPPED", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		orders.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_GetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		view := sampleOrderView(domain.OrderStatusPending)
		orders := new(MockOrderManager)
		orders.On("GetOrder", mock.Anything, testStudioID, view.ID).Return(view, nil)

		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/orders/"+view.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got appfulfillment.OrderView
		decodeData(t, w, &got)
		assert.Equal(t, view.ID, got.ID)
		assert.True(t, view.Subtotal.Equal(got.Subtotal))
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		orders := new(MockOrderManager)
		orders.On("GetOrder", mock.Anything, testStudioID, id).Return(nil, domain.ErrOrderNotFound)

		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/orders/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		orders := new(MockOrderManager)
		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/orders/not-a-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderHandler_Transitions(t *testing.T) {
	t.Run("fulfill", func(t *testing.T) {
		view := sampleOrderView(domain.OrderStatusFulfilled)
		orders := new(MockOrderManager)
		orders.On("MarkFulfilled", mock.Anything, testStudioID, view.ID).Return(view, nil)

		w := doJSON(t, newOrderRouter(orders), http.MethodPost, "/api/v1/orders/"+view.ID.String()+"/fulfill", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got appfulfillment.OrderView
		decodeData(t, w, &got)
		assert.Equal(t, domain.OrderStatusFulfilled, got.Status)
	})

	t.Run("cancel a fulfilled order", func(t *testing.T) {
		id := uuid.New()
		orders := new(MockOrderManager)
		orders.On("Cancel", mock.Anything, testStudioID, id).Return(nil, domain.ErrInvalidOrderStatus)

		w := doJSON(t, newOrderRouter(orders), http.MethodPost, "/api/v1/orders/"+id.String()+"/cancel", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}

func TestOrderHandler_ListSubmissions(t *testing.T) {
	submissions := []appfulfillment.SubmissionView{{
		CheckoutID:      uuid.New(),
		Provider:        domain.ProviderWHCC,
		Status:          domain.SubmissionSucceeded,
		ExternalOrderID: "WHCC-77",
		ItemCount:       2,
	}}

	t.Run("explicit limit", func(t *testing.T) {
		orders := new(MockOrderManager)
		orders.On("RecentSubmissions", mock.Anything, testStudioID, 10).Return(submissions, nil)

		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/admin/submissions?limit=10", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got []appfulfillment.SubmissionView
		decodeData(t, w, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "WHCC-77", got[0].ExternalOrderID)
	})

	t.Run("default limit is left to the service", func(t *testing.T) {
		orders := new(MockOrderManager)
		orders.On("RecentSubmissions", mock.Anything, testStudioID, 0).Return(submissions, nil)

		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/admin/submissions", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		orders.AssertExpectations(t)
	})

	t.Run("non numeric limit", func(t *testing.T) {
		orders := new(MockOrderManager)
		w := doJSON(t, newOrderRouter(orders), http.MethodGet, "/api/v1/admin/submissions?limit=ten", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeResponse(t, w).Error.Code)
	})
}
