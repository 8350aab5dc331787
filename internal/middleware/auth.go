package middleware

import (
	"net/http"

	"viewearn/config"
	"viewearn/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	keyUserID = "viewearn.user_id"
	keyRole   = "viewearn.role"
)

// AuthRequired accepts a bearer JWT from the identity provider and stores
// the caller's user ID and role on the context.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, "missing or malformed bearer token")
			return
		}
		claims, err := auth.ParseAccessToken(cfg, raw)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}
		c.Set(keyUserID, claims.UserID)
		c.Set(keyRole, claims.Role)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="viewearn"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// GetUserID returns the caller's user ID, or 0 outside AuthRequired.
func GetUserID(c *gin.Context) uint {
	return c.GetUint(keyUserID)
}

func GetRole(c *gin.Context) string {
	return c.GetString(keyRole)
}
