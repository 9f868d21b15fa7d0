package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/photolab/backend/internal/infrastructure/auth"
	"github.com/photolab/backend/internal/infrastructure/logger"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
)

// TokenRevoker revokes a token until it would have expired anyway
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthHandler exposes the caller's token and lets it be revoked
type AuthHandler struct {
	BaseHandler
	revoker TokenRevoker
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{revoker: revoker}
}

// SessionResponse describes the authenticated caller
type SessionResponse struct {
	StudioID  string      `json:"studio_id"`
	Subject   string      `json:"subject,omitempty"`
	Roles     []auth.Role `json:"roles"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// GetSession handles GET /api/v1/auth/me
func (h *AuthHandler) GetSession(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	resp := SessionResponse{
		StudioID: claims.StudioID,
		Subject:  claims.Subject,
		Roles:    claims.Roles,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = &claims.ExpiresAt.Time
	}
	if resp.Roles == nil {
		resp.Roles = []auth.Role{}
	}
	h.Success(c, resp)
}

// Logout handles POST /api/v1/auth/logout by revoking the presented token
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.revoker.Revoke(c.Request.Context(), claims.ID, claims.GetRemainingTTL()); err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("Token revoked", zap.String("jti", claims.ID))
	h.NoContent(c)
}
