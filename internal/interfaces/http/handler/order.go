package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appfulfillment "github.com/photolab/backend/internal/application/fulfillment"
	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/interfaces/http/dto"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
)

// OrderManager reads and updates standard-path orders and the dispatch log
type OrderManager interface {
	ListOrders(ctx context.Context, studioID uuid.UUID, filter domain.OrderFilter) ([]appfulfillment.OrderView, int64, error)
	GetOrder(ctx context.Context, studioID, id uuid.UUID) (*appfulfillment.OrderView, error)
	MarkFulfilled(ctx context.Context, studioID, id uuid.UUID) (*appfulfillment.OrderView, error)
	Cancel(ctx context.Context, studioID, id uuid.UUID) (*appfulfillment.OrderView, error)
	RecentSubmissions(ctx context.Context, studioID uuid.UUID, limit int) ([]appfulfillment.SubmissionView, error)
}

// OrderHandler serves the studio's order list and dispatch history
type OrderHandler struct {
	BaseHandler
	orders OrderManager
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderManager) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}

	req := dto.OrderListRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), studioID, domain.OrderFilter{
		Status:   domain.OrderStatus(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, req.Page, req.PageSize)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	h.withOrder(c, h.orders.GetOrder)
}

// MarkFulfilled handles POST /api/v1/orders/:id/fulfill
func (h *OrderHandler) MarkFulfilled(c *gin.Context) {
	h.withOrder(c, h.orders.MarkFulfilled)
}

// Cancel handles POST /api/v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	h.withOrder(c, h.orders.Cancel)
}

func (h *OrderHandler) withOrder(
	c *gin.Context,
	fn func(ctx context.Context, studioID, id uuid.UUID) (*appfulfillment.OrderView, error),
) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := fn(c.Request.Context(), studioID, uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// ListSubmissions handles GET /api/v1/admin/submissions?limit=
func (h *OrderHandler) ListSubmissions(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			h.BadRequest(c, "limit must be a number")
			return
		}
	}

	submissions, err := h.orders.RecentSubmissions(c.Request.Context(), studioID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, submissions)
}
