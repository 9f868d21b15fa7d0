package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appfulfillment "github.com/photolab/backend/internal/application/fulfillment"
	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/interfaces/http/dto"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
)

// ProviderSettingsManager configures a studio's labs
type ProviderSettingsManager interface {
	GetSettings(ctx context.Context, studioID uuid.UUID) (*appfulfillment.ProviderSettingsView, error)
	UpdateProvider(ctx context.Context, studioID uuid.UUID, code domain.ProviderCode, input appfulfillment.UpdateProviderInput) (*appfulfillment.ProviderView, error)
	TestConnection(ctx context.Context, studioID uuid.UUID, code domain.ProviderCode) error
}

// ProviderAdminHandler serves the admin lab configuration endpoints
type ProviderAdminHandler struct {
	BaseHandler
	settings ProviderSettingsManager
}

// NewProviderAdminHandler creates a new ProviderAdminHandler
func NewProviderAdminHandler(settings ProviderSettingsManager) *ProviderAdminHandler {
	return &ProviderAdminHandler{settings: settings}
}

// ListProviders handles GET /api/v1/admin/providers
func (h *ProviderAdminHandler) ListProviders(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}

	view, err := h.settings.GetSettings(c.Request.Context(), studioID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// UpdateProvider handles PUT /api/v1/admin/providers/:provider
func (h *ProviderAdminHandler) UpdateProvider(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}
	code, err := domain.ParseProviderCode(strings.ToLower(c.Param("provider")))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req dto.UpdateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	view, err := h.settings.UpdateProvider(c.Request.Context(), studioID, code, appfulfillment.UpdateProviderInput{
		Enabled:     req.Enabled,
		Sandbox:     req.Sandbox,
		Credentials: req.Credentials.ToCredentials(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// TestConnection handles POST /api/v1/admin/providers/:provider/test.
// A lab that answers with an error is reported as ok=false with status 200;
// request problems such as missing credentials keep their error status.
// The optional roes_session query names the bridge session the admin page polls.
func (h *ProviderAdminHandler) TestConnection(c *gin.Context) {
	studioID, err := getStudioID(c)
	if err != nil {
		h.Unauthorized(c, "Studio could not be determined")
		return
	}
	code, err := domain.ParseProviderCode(strings.ToLower(c.Param("provider")))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx := domain.WithROESSession(c.Request.Context(), c.Query("roes_session"))
	err = h.settings.TestConnection(ctx, studioID, code)
	if err == nil {
		h.Success(c, dto.ConnectionTestResponse{
			Provider: code.String(),
			OK:       true,
			Message:  "Connected to " + code.DisplayName(),
		})
		return
	}

	errCode, message := classifyError(err)
	if status := dto.GetHTTPStatus(errCode); status < http.StatusBadGateway {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ConnectionTestResponse{
		Provider: code.String(),
		OK:       false,
		Message:  message,
	})
}
