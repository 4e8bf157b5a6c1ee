package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lotix/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// Trace assigns each request an ID for log correlation. An incoming
// X-Request-ID is honored so upstream proxies can thread their own IDs.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()
	}
}
