package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CallerHeader carries the authenticated user id set by the upstream gateway.
const CallerHeader = "X-User-ID"

const callerKey = "chat.caller"

// RequireCaller rejects requests without a caller identity.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CallerHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
			return
		}
		c.Set(callerKey, id)
		c.Next()
	}
}

// CallerID returns the identity stored by RequireCaller.
func CallerID(c *gin.Context) string {
	return c.GetString(callerKey)
}
