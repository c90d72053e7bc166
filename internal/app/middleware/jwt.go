package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/models"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/domain/services"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/code"
	"github.com/pramacoder/BookingApartSystem-sub000/internal/error/response"
)

// 上下文中保存的认证信息键名
const (
	ContextUserID    = "userID"
	ContextRole      = "role"
	ContextTokenID   = "tokenID"
	ContextClaims    = "claims"
	tokenQueryParam  = "token"
	bearerPrefix     = "Bearer "
	bearerPrefixSize = len(bearerPrefix)
)

var jwtService services.InterfaceJWTService

// InitAuthMiddleware 初始化认证中间件
func InitAuthMiddleware(svc services.InterfaceJWTService) {
	jwtService = svc
}

// extractToken 优先从授权头提取token，WebSocket 握手无法携带请求头时使用 ?token=
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		if len(authHeader) > bearerPrefixSize && strings.HasPrefix(authHeader, bearerPrefix) {
			return strings.TrimSpace(authHeader[bearerPrefixSize:])
		}
		return strings.TrimSpace(authHeader)
	}
	return c.Query(tokenQueryParam)
}

// RequireRoles 验证令牌并要求角色在给定范围内，roles 为空时任意已登录用户均可访问
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtService == nil {
			response.FailWithMessage(c, code.ErrUnknown, "认证服务未初始化", nil)
			c.Abort()
			return
		}

		tokenString := extractToken(c)
		if tokenString == "" {
			response.FailWithMessage(c, code.ErrTokenInvalid, "缺少认证令牌", nil)
			c.Abort()
			return
		}

		claims, err := jwtService.ExtractClaims(tokenString)
		if err != nil {
			response.FailWithMessage(c, code.ErrTokenInvalid, "令牌无效或已过期", nil)
			c.Abort()
			return
		}
		if jwtService.IsRevoked(c.Request.Context(), claims.ID) {
			response.FailWithMessage(c, code.ErrTokenInvalid, "令牌已失效，请重新登录", nil)
			c.Abort()
			return
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			response.FailWithMessage(c, code.ErrForbidden, "权限不足", nil)
			c.Abort()
			return
		}

		// 存储claims到上下文
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextTokenID, claims.ID)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// AuthenticateAdmin 验证管理员权限
func AuthenticateAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

// AuthenticateResident 验证居民权限
func AuthenticateResident() gin.HandlerFunc {
	return RequireRoles(models.RoleResident)
}

// Authentication 通用的认证中间件
func Authentication() gin.HandlerFunc {
	return RequireRoles()
}

func hasRole(role models.UserRole, allowed []models.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CurrentUserID 当前登录用户ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// CurrentRole 当前登录用户角色
func CurrentRole(c *gin.Context) models.UserRole {
	if role, ok := c.Get(ContextRole); ok {
		if r, ok := role.(models.UserRole); ok {
			return r
		}
	}
	return ""
}

// CurrentClaims 当前令牌声明
func CurrentClaims(c *gin.Context) *services.JWTClaims {
	if v, ok := c.Get(ContextClaims); ok {
		if claims, ok := v.(*services.JWTClaims); ok {
			return claims
		}
	}
	return nil
}
