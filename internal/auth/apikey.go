package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type tenantKey struct{}

// WithTenant returns a copy of ctx that carries tenant through to the sinks.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// Tenant returns the storefront that submitted the event, or "" when unknown.
func Tenant(ctx context.Context) string {
	s, _ := ctx.Value(tenantKey{}).(string)
	return s
}

// APIKeyMiddleware resolves the caller's key to a tenant (storefront) and stores it
// on the request context. navigator.sendBeacon cannot set headers, so the api_key
// query parameter is accepted when X-API-Key is absent.
func APIKeyMiddleware(keys map[string]string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := apiKey(c)
		tenant, ok := keys[key]
		if key == "" || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Request = c.Request.WithContext(WithTenant(c.Request.Context(), tenant))
		c.Next()
	}
}

func apiKey(c *gin.Context) string {
	if k := strings.TrimSpace(c.GetHeader("X-API-Key")); k != "" {
		return k
	}
	return strings.TrimSpace(c.Query("api_key"))
}

// TenantID is Tenant for the request behind c.
func TenantID(c *gin.Context) string {
	return Tenant(c.Request.Context())
}
