// Package auth resolves the caller principal for every request. The engine
// sits behind a gateway that authenticates principals; this layer only reads
// the identity header the gateway forwards.
package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"predictionmarket/internal/config"
)

const principalKey = "auth.principal"

// DefaultHeader is used when the config leaves the header name empty.
const DefaultHeader = "X-Principal"

// PrincipalMiddleware stores the caller identity on the gin context. With
// auth disabled, a missing header falls back to "dev" so local calls work
// without a gateway in front.
func PrincipalMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	header := strings.TrimSpace(cfg.PrincipalHeader)
	if header == "" {
		header = DefaultHeader
	}
	return func(c *gin.Context) {
		principal := strings.TrimSpace(c.GetHeader(header))
		if principal == "" && cfg.Disabled {
			principal = "dev"
		}
		if principal != "" {
			c.Set(principalKey, principal)
		}
		c.Next()
	}
}

// Caller returns the principal set by the middleware, "" when anonymous.
func Caller(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if v, ok := c.Get(principalKey); ok {
		if principal, ok := v.(string); ok {
			return principal
		}
	}
	return ""
}
