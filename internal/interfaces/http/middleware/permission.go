package middleware

import (
	"net/http"

	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// OnDenied replaces the default 403 response (optional)
	OnDenied func(c *gin.Context, reason string)
}

// RequirePrivileged admits only staff and superuser tokens. It must run
// after JWTAuth.
func RequirePrivileged() gin.HandlerFunc {
	return RequirePrivilegedWithConfig(PermissionConfig{})
}

// RequirePrivilegedWithConfig creates middleware with custom config
func RequirePrivilegedWithConfig(cfg PermissionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			handlePermissionDenied(c, cfg, "No authentication claims found")
			return
		}
		if !claims.IsPrivileged() {
			handlePermissionDenied(c, cfg, "User is neither staff nor superuser")
			return
		}
		c.Next()
	}
}

func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, reason)
		if !c.IsAborted() {
			c.Abort()
		}
		return
	}

	userID := ""
	if claims, ok := GetClaims(c); ok {
		userID = claims.UserID
	}
	logger.RequestLogger(c).Warn("Permission denied",
		zap.String("reason", reason),
		zap.String("user_id", userID),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)

	abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access denied: staff privileges required")
}
