package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/photolab/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects declared oversized bodies up front and caps streamed ones
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", c.GetString(RequestIDKey)))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
