package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/web3market/marketd/core"
	"github.com/web3market/marketd/service"
)

const sellerContextKey = "seller"

// AuthRequired validates the bearer token and attaches the resolved seller
// to the request context. The middleware never fabricates an identity: a
// missing, malformed or unresolvable token aborts with 401.
func AuthRequired(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		seller, err := auth.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Set(sellerContextKey, seller)
		c.Next()
	}
}

// SellerFromContext returns the seller attached by AuthRequired.
func SellerFromContext(c *gin.Context) (*core.Seller, bool) {
	v, ok := c.Get(sellerContextKey)
	if !ok {
		return nil, false
	}
	seller, ok := v.(*core.Seller)
	return seller, ok
}

// RequestLogger logs one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("request")
	}
}

// RateLimit applies a per-client token bucket: max requests per window,
// keyed by client IP.
func RateLimit(max int, window time.Duration) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	limit := rate.Every(window / time.Duration(max))

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(limit, max)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
