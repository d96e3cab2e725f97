package middleware

import (
	"net/http"

	"docbrain-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware only lets requests with admin claims through. It must
// run after AuthMiddleware.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(ClaimsKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}
		claims, ok := value.(*token.CustomClaims)
		if !ok || claims.Role != token.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Admin privileges required"})
			return
		}
		c.Next()
	}
}
