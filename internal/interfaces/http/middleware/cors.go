// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/coating-shop/internal/config"
)

// exposedHeaders are the response headers browser clients may read
var exposedHeaders = strings.Join([]string{
	headerRequestID,
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
}, ", ")

// CORS answers preflight requests and tags responses for allowed origins.
// Origins may be exact, "*" or a "*.domain" subdomain wildcard.
func CORS(cfg *config.Config) gin.HandlerFunc {
	methods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	headers := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")
	allowed := cfg.Security.CORSAllowedOrigins

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && isOriginAllowed(origin, allowed) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Expose-Headers", exposedHeaders)
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if domain, ok := strings.CutPrefix(allowed, "*."); ok {
			// the dot keeps evilexample.com from matching *.example.com
			if strings.HasSuffix(origin, "."+domain) {
				return true
			}
		}
	}
	return false
}
