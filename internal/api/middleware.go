package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fileforge/internal/auth"
)

const (
	contextUserID   = "userID"
	contextUsername = "username"
)

// AuthMiddleware requires a valid bearer token and puts the caller's
// identity on the request context.
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}
		claims, err := authService.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		c.Set(contextUserID, claims.UserID)
		c.Set(contextUsername, claims.Username)
		c.Next()
	}
}

// OptionalAuth extracts the caller's identity when a token is present but
// never rejects the request.
func OptionalAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			if claims, err := authService.VerifyToken(strings.TrimPrefix(header, "Bearer ")); err == nil {
				c.Set(contextUserID, claims.UserID)
				c.Set(contextUsername, claims.Username)
			}
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(contextUserID)
}
