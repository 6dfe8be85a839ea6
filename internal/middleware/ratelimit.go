package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/oncovista-opd-server/internal/domain"
)

const maxTrackedClients = 10000

// RateLimiter keeps one token bucket per client IP. The least recently seen
// clients are forgotten once maxTrackedClients is reached.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter from the API rate limit settings
func NewRateLimiter(config domain.RateLimitConfig) *RateLimiter {
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	// size is a positive constant, so New cannot fail
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)

	return &RateLimiter{
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   burst,
		clients: clients,
	}
}

// Allow consumes one token for client
func (rl *RateLimiter) Allow(client string) bool {
	limiter, ok := rl.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		if prev, found, _ := rl.clients.PeekOrAdd(client, limiter); found {
			limiter = prev
		}
	}
	return limiter.Allow()
}

// Middleware rejects requests over the limit with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		if rl.limit > 0 {
			retry := int(math.Ceil(1 / float64(rl.limit)))
			c.Header("Retry-After", strconv.Itoa(max(retry, 1)))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrRateLimit,
			"Rate limit exceeded",
			"",
			c.GetString(CorrelationIDKey),
		))
	}
}
