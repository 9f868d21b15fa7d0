package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/domain/shared"
	"github.com/photolab/backend/internal/infrastructure/logger"
	"github.com/photolab/backend/internal/infrastructure/roes"
	"github.com/photolab/backend/internal/interfaces/http/dto"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
)

var errStudioNotFound = errors.New("studio not found in request context")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// errorMapping ties a domain sentinel to its response code and text
type errorMapping struct {
	err     error
	code    string
	message string
}

// Checked in order; the first errors.Is match wins.
var domainErrorMappings = []errorMapping{
	{domain.ErrEmptyCart, dto.ErrCodeValidation, "Cart is empty"},
	{domain.ErrInvalidQuantity, dto.ErrCodeValidation, "Quantity must be positive"},
	{domain.ErrInvalidPrice, dto.ErrCodeValidation, "Price cannot be negative"},
	{domain.ErrMissingPhoto, dto.ErrCodeValidation, "Every cart item needs a photo"},
	{domain.ErrInvalidCrop, dto.ErrCodeValidation, "Crop rectangle is out of bounds"},
	{domain.ErrMissingProduct, dto.ErrCodeValidation, "Every cart item needs a product"},
	{domain.ErrInvalidCustomer, dto.ErrCodeValidation, "Customer requires first name, last name and email"},
	{domain.ErrInvalidProviderCode, dto.ErrCodeInvalidInput, "Unknown or non-configurable provider"},
	{domain.ErrInvalidOrderStatus, dto.ErrCodeInvalidInput, "Unknown order status"},
	{domain.ErrROESSessionRequired, dto.ErrCodeValidation, "ROES session is required"},
	{domain.ErrROESSessionForeign, dto.ErrCodeForbidden, "ROES session belongs to another studio"},
	{roes.ErrForeignSession, dto.ErrCodeForbidden, "ROES session belongs to another studio"},
	{domain.ErrOrderNotFound, dto.ErrCodeNotFound, "Order not found"},
	{domain.ErrPhotoNotFound, dto.ErrCodeNotFound, "Photo not found"},
	{domain.ErrMissingCredentials, dto.ErrCodeMissingCredentials, "Provider credentials are not configured"},
	{domain.ErrProviderAuthFailed, dto.ErrCodeUpstreamAuth, "Provider rejected the credentials"},
	{context.DeadlineExceeded, dto.ErrCodeUpstreamTimeout, "Provider did not answer in time"},
	{domain.ErrCircuitOpen, dto.ErrCodeUpstreamUnavailable, "Provider is temporarily unavailable"},
	{domain.ErrProviderUnavailable, dto.ErrCodeUpstreamUnavailable, "Provider is temporarily unavailable"},
	{domain.ErrROESTimeout, dto.ErrCodeUpstreamTimeout, "ROES did not answer in time"},
	{domain.ErrProviderInvalidResponse, dto.ErrCodeUpstream, "Provider returned an unexpected response"},
	{domain.ErrProviderRequestFailed, dto.ErrCodeUpstream, "Provider request failed"},
}

// classifyError returns the response code and message for err,
// or ErrCodeInternal when err is not a known domain error
func classifyError(err error) (string, string) {
	for _, m := range domainErrorMappings {
		if errors.Is(err, m.err) {
			return m.code, m.message
		}
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return dto.NormalizeErrorCode(domainErr.Code), domainErr.Message
	}
	return dto.ErrCodeInternal, "An unexpected error occurred"
}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// getStudioID returns the studio resolved by the auth middleware
func getStudioID(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.GetStudioID(c)
	if !ok {
		return uuid.Nil, errStudioNotFound
	}
	return id, nil
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// HandleError maps err to a response. Validation failures list their fields;
// domain sentinels use their mapped code; anything else is logged as a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		middleware.HandleValidationError(c, err)
		return
	}

	code, message := classifyError(err)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.GetGinLogger(c).Error("Request failed", zap.Error(err))
	}
	h.Error(c, status, code, message)
}
