package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/laundry_go_server/internal/pkg/jwt"
	"github.com/qs3c/laundry_go_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}

// CanAccessClient 员工可访问任意客户，客户只能访问自己
func CanAccessClient(c *gin.Context, clientID int64) bool {
	switch GetRole(c) {
	case jwt.RoleStaff:
		return true
	case jwt.RoleClient:
		userID, ok := GetUserID(c)
		return ok && userID == clientID
	}
	return false
}
