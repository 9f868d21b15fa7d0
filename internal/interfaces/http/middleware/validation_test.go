package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photolab/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func newBindRouter(limit int64) *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	if limit > 0 {
		router.Use(BodyLimit(limit))
	}
	router.POST("/test", func(c *gin.Context) {
		var req dto.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func postJSON(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleBindError(t *testing.T) {
	router := newBindRouter(0)

	t.Run("validation errors use json field names", func(t *testing.T) {
		w := postJSON(router, `{"customer": {"firstName": "Ada", "lastName": "L", "email": "nope"}, "items": []}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Invalid email format", fields["email"])
		assert.Equal(t, "Must contain at least 1 entries", fields["items"])
	})

	t.Run("malformed json", func(t *testing.T) {
		w := postJSON(router, `{"customer": `)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeInvalidJSON)
	})

	t.Run("wrong type", func(t *testing.T) {
		w := postJSON(router, `{"customer": {"firstName": 12}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
	})

	t.Run("body over limit", func(t *testing.T) {
		limited := newBindRouter(64)
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"customer": {"firstName": "`+strings.Repeat("a", 200)+`"}}`))
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = -1
		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeRequestTooLarge)
	})
}

func TestGetValidationMessage(t *testing.T) {
	type input struct {
		Required string   `validate:"required"`
		Email    string   `validate:"omitempty,email"`
		Min      string   `validate:"omitempty,min=5"`
		Items    []string `validate:"min=1"`
		OneOf    string   `validate:"omitempty,oneof=a b"`
		UUID     string   `validate:"omitempty,uuid"`
		Qty      int      `validate:"gte=1"`
	}

	err := validator.New().Struct(input{Email: "x", Min: "ab", OneOf: "c", UUID: "nope"})
	require.Error(t, err)

	got := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		got[e.Field()] = getValidationMessage(e)
	}

	assert.Equal(t, "This field is required", got["Required"])
	assert.Equal(t, "Invalid email format", got["Email"])
	assert.Equal(t, "Must be at least 5 characters", got["Min"])
	assert.Equal(t, "Must contain at least 1 entries", got["Items"])
	assert.Equal(t, "Must be one of: a b", got["OneOf"])
	assert.Equal(t, "Invalid UUID format", got["UUID"])
	assert.Equal(t, "Must be greater than or equal to 1", got["Qty"])
}
