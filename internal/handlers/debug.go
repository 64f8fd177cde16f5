package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-chat/internal/telemetry"
)

// PresenceLookup reports which connection, if any, a user is bound to.
type PresenceLookup interface {
	Lookup(userID int) (string, bool)
	Len() int
}

// RegisterDebugRoutes wires operator endpoints for inspecting live chat
// state. Nothing is registered unless enabled.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, online PresenceLookup, enabled bool) {
	if !enabled {
		return
	}

	debug := router.Group("/debug")
	debug.GET("/presence", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"online_users": online.Len()})
	})
	debug.GET("/presence/:userId", func(c *gin.Context) {
		userID, ok := pathUserID(c, "userId")
		if !ok {
			return
		}
		connID, connected := online.Lookup(userID)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": connected, "conn_id": connID})
	})
	debug.GET("/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		userID := userIDFromContext(c)
		emitter.Emit(c.Request.Context(), "INFO", "chat audit pipeline check", requestIDFromContext(c), userID)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "user_id": userID})
	})
}
