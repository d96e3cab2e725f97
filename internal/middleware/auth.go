// Package middleware holds the gin middleware of the HTTP API.
package middleware

import (
	"net/http"
	"strings"

	"docbrain-go/pkg/log"
	"docbrain-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key of the verified *token.CustomClaims.
const ClaimsKey = "claims"

// AuthMiddleware verifies the Bearer token of the request and stores its
// claims in the gin context.
func AuthMiddleware(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header is required"})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid authorization header format"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Warnf("rejected token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
