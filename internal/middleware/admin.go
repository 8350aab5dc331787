package middleware

import (
	"net/http"

	"viewearn/internal/domain"

	"github.com/gin-gonic/gin"
)

// AdminRequired guards the withdrawal review and reporting routes. It must
// run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
