package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/laundry_go_server/internal/pkg/response"
)

// RequireRole 角色检查中间件，需在 Auth 之后使用
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}

		response.PermissionError(c, "")
		c.Abort()
	}
}
