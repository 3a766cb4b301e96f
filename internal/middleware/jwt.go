package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aura-debate/backend/internal/auth"
	"github.com/aura-debate/backend/pkg/response"
)

const (
	// ContextAdminID is the key for the admin ID in gin context.
	ContextAdminID = auth.ContextAdminID
	// ContextRole is the key for the admin role in gin context.
	ContextRole = "admin_role"
	// ContextEmail is the key for the admin email in gin context.
	ContextEmail = "admin_email"
)

// JWT returns a middleware that validates JWT and sets admin claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}
