package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photolab/backend/internal/infrastructure/auth"
	"github.com/photolab/backend/internal/infrastructure/cache"
	"github.com/photolab/backend/internal/infrastructure/config"
	"github.com/photolab/backend/internal/interfaces/http/dto"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-at-least-32-chars",
		Issuer:          "test-issuer",
		TokenExpiration: 15 * time.Minute,
	})
}

func newTestToken(t *testing.T, svc *auth.JWTService, roles ...auth.Role) (string, uuid.UUID) {
	t.Helper()
	studioID := uuid.New()
	token, _, err := svc.GenerateToken(auth.GenerateTokenInput{
		StudioID: studioID,
		Subject:  "owner@studio.test",
		Roles:    roles,
	})
	require.NoError(t, err)
	return token, studioID
}

func newAuthRouter(cfg JWTMiddlewareConfig, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuthMiddlewareWithConfig(cfg))
	handlers := append(extra, func(c *gin.Context) {
		studioID, ok := GetStudioID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, studioID.String())
	})
	router.GET("/test", handlers...)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.RequestID)
	return resp.Error.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token, studioID := newTestToken(t, svc, auth.RoleStorefront)
	router := newAuthRouter(DefaultJWTConfig(svc))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, studioID.String(), rec.Body.String())
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService()
	expired := auth.NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-at-least-32-chars",
		Issuer:          "test-issuer",
		TokenExpiration: -time.Minute,
	})
	expiredToken, _ := newTestToken(t, expired)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", dto.ErrCodeTokenInvalid},
		{"empty bearer", "Bearer ", dto.ErrCodeTokenInvalid},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeTokenInvalid},
		{"expired token", "Bearer " + expiredToken, dto.ErrCodeTokenExpired},
	}

	router := newAuthRouter(DefaultJWTConfig(svc))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.code, decodeErrorCode(t, rec))
		})
	}
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := newAuthRouter(DefaultJWTConfig(newTestJWTService()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthMiddleware_RevokedToken(t *testing.T) {
	svc := newTestJWTService()
	token, _ := newTestToken(t, svc)
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	store := cache.NewInMemoryStore()
	defer store.Close()
	blacklist := auth.NewCacheTokenBlacklist(store)
	require.NoError(t, blacklist.Revoke(context.Background(), claims.ID, time.Minute))

	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = blacklist
	router := newAuthRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, decodeErrorCode(t, rec))
}

type brokenBlacklist struct{}

func (brokenBlacklist) Revoke(context.Context, string, time.Duration) error { return nil }

func (brokenBlacklist) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestJWTAuthMiddleware_BlacklistFailureFailsOpen(t *testing.T) {
	svc := newTestJWTService()
	token, studioID := newTestToken(t, svc)

	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = brokenBlacklist{}
	router := newAuthRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, studioID.String(), rec.Body.String())
}

func TestJWTAuthMiddleware_StudioHeader(t *testing.T) {
	studioID := uuid.New()

	t.Run("disabled by default", func(t *testing.T) {
		router := newAuthRouter(DefaultJWTConfig(newTestJWTService()))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(StudioIDHeader, studioID.String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepted when enabled", func(t *testing.T) {
		cfg := DefaultJWTConfig(newTestJWTService())
		cfg.AllowStudioHeader = true
		router := newAuthRouter(cfg)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(StudioIDHeader, studioID.String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, studioID.String(), rec.Body.String())
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		cfg := DefaultJWTConfig(newTestJWTService())
		cfg.AllowStudioHeader = true
		router := newAuthRouter(cfg)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(StudioIDHeader, "studio-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	svc := newTestJWTService()
	cfg := DefaultJWTConfig(svc)
	cfg.AllowStudioHeader = true
	router := newAuthRouter(cfg, RequireRole(auth.RoleAdmin))

	t.Run("admin token passes", func(t *testing.T) {
		token, _ := newTestToken(t, svc, auth.RoleAdmin)
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("storefront token is forbidden", func(t *testing.T) {
		token, _ := newTestToken(t, svc, auth.RoleStorefront)
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, dto.ErrCodeForbidden, decodeErrorCode(t, rec))
	})

	t.Run("studio header never grants a role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(StudioIDHeader, uuid.NewString())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
