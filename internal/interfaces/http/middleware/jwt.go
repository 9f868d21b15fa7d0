package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photolab/backend/internal/infrastructure/auth"
	"github.com/photolab/backend/internal/infrastructure/logger"
	"github.com/photolab/backend/internal/interfaces/http/dto"
)

// Auth context keys
const (
	JWTClaimsKey  = "jwt_claims"
	StudioIDKey   = "studio_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

var errMissingAuthHeader = errors.New("missing authorization header")

// JWTMiddlewareConfig holds configuration for the studio authentication middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional; revoked token ids are rejected
	TokenBlacklist auth.TokenBlacklist
	// AllowStudioHeader accepts X-Studio-ID without a token. Development only.
	AllowStudioHeader bool
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig returns default middleware configuration
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/ready",
			"/api/v1/health",
		},
		Logger: zap.NewNop(),
	}
}

// JWTAuthMiddlewareWithConfig resolves the calling studio from a bearer token,
// or from X-Studio-ID when header selection is enabled
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			if cfg.AllowStudioHeader {
				if studioID, err := uuid.Parse(c.GetHeader(StudioIDHeader)); err == nil {
					setStudio(c, studioID.String())
					c.Next()
					return
				}
			}
			handleAuthError(c, cfg, errMissingAuthHeader, "Missing authorization header")
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, BearerPrefix)
		if !ok || tokenString == "" {
			handleAuthError(c, cfg, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}

		claims, err := cfg.JWTService.ValidateToken(tokenString)
		if err != nil {
			handleAuthError(c, cfg, err, "Token validation failed")
			return
		}

		if cfg.TokenBlacklist != nil && claims.ID != "" {
			revoked, err := cfg.TokenBlacklist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// fail open: the token signature is already verified
				cfg.Logger.Error("Failed to check token revocation",
					zap.String("jti", claims.ID),
					zap.Error(err))
			} else if revoked {
				handleAuthError(c, cfg, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		setStudio(c, claims.StudioID)

		cfg.Logger.Debug("JWT authentication successful",
			zap.String("studio_id", claims.StudioID),
			zap.String("subject", claims.Subject),
		)
		c.Next()
	}
}

// RequireRole rejects callers whose token lacks every listed role
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims != nil && slices.ContainsFunc(roles, claims.HasRole) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeForbidden, "Insufficient role for this operation", c.GetString(RequestIDKey)))
	}
}

func setStudio(c *gin.Context, studioID string) {
	c.Set(StudioIDKey, studioID)
	ctx, log := logger.WithStudioID(c.Request.Context(), logger.FromContext(c.Request.Context()), studioID)
	c.Request = c.Request.WithContext(ctx)
	logger.SetGinLogger(c, log)
}

func handleAuthError(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	cfg.Logger.Warn("Authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, text := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, text = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, text = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingStudioID), errors.Is(err, auth.ErrInvalidClaims):
		code, text = dto.ErrCodeTokenInvalid, "Token does not identify a studio"
	case errors.Is(err, auth.ErrInvalidToken):
		code, text = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, text, c.GetString(RequestIDKey)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetStudioID returns the authenticated studio
func GetStudioID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(StudioIDKey))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
