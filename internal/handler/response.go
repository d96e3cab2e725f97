// Package handler contains the gin handlers of the HTTP API.
package handler

import (
	"github.com/gin-gonic/gin"
)

// fail aborts with the {success: false, message} envelope every route uses
// for errors.
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// sessionID reads the chat session from the X-Session-ID header or the
// sessionId query parameter.
func sessionID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-ID"); id != "" {
		return id
	}
	return c.Query("sessionId")
}
