package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"rental-chat/internal/middleware"
	"rental-chat/internal/observability"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestID(c.Request)
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// userIDFromContext returns the authenticated user, falling back to the
// X-User-ID header set by the gateway. 0 means unknown.
func userIDFromContext(c *gin.Context) int {
	if userID := c.GetInt(middleware.UserIDKey); userID != 0 {
		return userID
	}
	if header := c.GetHeader("X-User-ID"); header != "" {
		if parsed, err := strconv.Atoi(header); err == nil {
			return parsed
		}
	}
	return 0
}
