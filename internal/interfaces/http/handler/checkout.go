package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/photolab/backend/internal/application/checkout"
	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/interfaces/http/dto"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
)

// CheckoutProcessor places a cart with the studio's selected lab
type CheckoutProcessor interface {
	ProcessCheckout(ctx context.Context, input checkout.ProcessCheckoutInput) (*checkout.CheckoutResult, error)
}

// CheckoutHandler handles storefront checkout requests
type CheckoutHandler struct {
	BaseHandler
	checkout CheckoutProcessor
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(processor CheckoutProcessor) *CheckoutHandler {
	return &CheckoutHandler{checkout: processor}
}

// ProcessCheckout handles POST /api/v1/checkout.
// A provider failure answers with the provider and its message, never with a
// different provider.
func (h *CheckoutHandler) ProcessCheckout(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.checkout.ProcessCheckout(c.Request.Context(), checkout.ProcessCheckoutInput{
		StudioID:        studioID,
		Customer:        req.Customer.ToCustomer(),
		Items:           req.ToCart(),
		ShippingAddress: req.ToShippingAddress(),
		ROESSession:     req.ROESSession,
	})
	if err != nil {
		var checkoutErr *checkout.CheckoutError
		if errors.As(err, &checkoutErr) {
			code, _ := classifyError(checkoutErr.Err)
			status := http.StatusBadGateway
			switch s := dto.GetHTTPStatus(code); {
			case s == http.StatusServiceUnavailable || s == http.StatusGatewayTimeout || s == http.StatusForbidden:
				status = s
			case errors.Is(checkoutErr.Err, domain.ErrROESSessionRequired):
				status = http.StatusBadRequest
			}
			c.JSON(status, dto.CheckoutResponse{
				Success:    false,
				Provider:   checkoutErr.Provider.String(),
				CheckoutID: checkoutErr.CheckoutID.String(),
				Message:    checkoutErr.Message(),
			})
			return
		}
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CheckoutResponse{
		Success:        true,
		Provider:       result.Provider.String(),
		OrderID:        result.OrderID,
		ConfirmationID: result.ConfirmationID,
		CheckoutID:     result.CheckoutID.String(),
		Message:        result.Message,
	})
}
