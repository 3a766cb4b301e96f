package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aura-debate/backend/internal/models"
	"github.com/aura-debate/backend/pkg/response"
)

// RequireRole lets a dashboard account through only when its role is listed.
// Run it after JWT. Operator-level routes list both roles; account management
// and stream deletion list RoleAdmin alone.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, ok := c.Get(ContextRole)
		if !ok {
			response.Unauthorized(c, "missing admin context")
			c.Abort()
			return
		}
		if r, _ := role.(models.Role); !allowed[r] {
			response.Forbidden(c, "role "+string(r)+" may not "+c.Request.Method+" "+c.FullPath())
			c.Abort()
			return
		}
		c.Next()
	}
}
