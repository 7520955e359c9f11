// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/coating-shop/internal/config"
	"github.com/your-org/coating-shop/internal/pkg/auth"
)

const (
	ctxUserID               = "user_id"
	ctxUserEmail            = "user_email"
	ctxUserRole             = "user_role"
	ctxCanOperateProduction = "can_operate_production"
	ctxCanManageSales       = "can_manage_sales"
	ctxTokenClaims          = "token_claims"
)

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		// Store user information in context
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)
		c.Set(ctxCanOperateProduction, claims.CanOperateProduction)
		c.Set(ctxCanManageSales, claims.CanManageSales)
		c.Set(ctxTokenClaims, claims)

		c.Next()
	}
}

// ProductionMiddleware ensures the user may operate the production floor
func ProductionMiddleware() gin.HandlerFunc {
	return requireCapability(ctxCanOperateProduction, "Production access required")
}

// SalesMiddleware ensures the user may manage sales data
func SalesMiddleware() gin.HandlerFunc {
	return requireCapability(ctxCanManageSales, "Sales access required")
}

func requireCapability(key, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ctxUserID); !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		if !c.GetBool(key) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": message,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// CanManageSalesFromContext checks if the user may see and edit sales data
func CanManageSalesFromContext(c *gin.Context) bool {
	return c.GetBool(ctxCanManageSales)
}
