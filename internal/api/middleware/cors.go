package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ConfigCORS allows every origin when domains is empty or contains "*".
func ConfigCORS(domains []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	allowAll := len(domains) == 0
	for _, d := range domains {
		if d == "*" {
			allowAll = true
		}
	}
	if allowAll {
		// AllowAllOrigins cannot be combined with credentials.
		conf.AllowOriginFunc = func(string) bool { return true }
	} else {
		conf.AllowOrigins = domains
	}

	return cors.New(conf)
}
