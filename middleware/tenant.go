package middleware

import (
	"net/http"
	"strings"

	"accommodation-backend/utils"

	"github.com/gin-gonic/gin"
)

const (
	TenantHeader = "X-Tenant-ID"
	TenantKey    = "tenantID"
)

// Tenant requires the tenant header on every API call. Resolving and
// authorizing the tenant happens upstream; this only scopes the request.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := strings.TrimSpace(c.GetHeader(TenantHeader))
		if tenant == "" || len(tenant) > 64 {
			utils.JSONError(c, http.StatusBadRequest, "error.missingTenant", TenantHeader+" header is required")
			c.Abort()
			return
		}
		c.Set(TenantKey, tenant)
		c.Next()
	}
}

func TenantFrom(c *gin.Context) string {
	return c.GetString(TenantKey)
}
