package middleware

import (
	"net/http"
	"strings"
	"sync"

	"KanariaGo/pkg/common"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// TokenBucketLimiter wraps x/time/rate for one route group.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// NewTokenBucketLimiter builds a limiter allowing qps sustained requests per
// second with the given burst.
func NewTokenBucketLimiter(qps int, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
	}
}

// Allow reports whether one more request fits the budget.
func (l *TokenBucketLimiter) Allow() bool {
	return l.limiter.Allow()
}

// UpdateLimit swaps the rate configuration at runtime.
func (l *TokenBucketLimiter) UpdateLimit(qps int, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter.SetLimit(rate.Limit(qps))
	l.limiter.SetBurst(burst)
}

// GlobalRateLimiterConfig holds per-route-group limiters.
type GlobalRateLimiterConfig struct {
	limiters map[string]*TokenBucketLimiter
	mu       sync.RWMutex
}

var globalRateLimiter *GlobalRateLimiterConfig

// InitGlobalRateLimiter installs the default limiter set. Validation runs
// open database files and scan whole tables, so the budgets are deliberately
// small next to the read-only endpoints.
func InitGlobalRateLimiter() {
	globalRateLimiter = &GlobalRateLimiterConfig{
		limiters: make(map[string]*TokenBucketLimiter),
	}

	// full comparison runs
	globalRateLimiter.AddLimiter("run", 20, 40)

	// problem-row extraction re-runs the comparison and materializes rows
	globalRateLimiter.AddLimiter("problem-rows", 10, 20)

	// cheap cache/stat reads
	globalRateLimiter.AddLimiter("stats", 200, 400)

	// everything else
	globalRateLimiter.AddLimiter("default", 100, 200)
}

// AddLimiter registers a limiter under a route-group name.
func (g *GlobalRateLimiterConfig) AddLimiter(name string, qps int, burst int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limiters[name] = NewTokenBucketLimiter(qps, burst)
}

// GetLimiter returns the limiter for a route group, falling back to default.
func (g *GlobalRateLimiterConfig) GetLimiter(name string) *TokenBucketLimiter {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if limiter, ok := g.limiters[name]; ok {
		return limiter
	}
	return g.limiters["default"]
}

// RateLimitMiddleware rejects requests over budget with 429.
func RateLimitMiddleware() gin.HandlerFunc {
	if globalRateLimiter == nil {
		InitGlobalRateLimiter()
	}

	return func(c *gin.Context) {
		limiterName := routeGroupByPath(c.Request.URL.Path)
		limiter := globalRateLimiter.GetLimiter(limiterName)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests,
				common.NewErrorResponse(429, "Too Many Requests - Rate limit exceeded"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// routeGroupByPath maps a request path onto a limiter/breaker name.
func routeGroupByPath(path string) string {
	switch {
	case strings.Contains(path, "/problem-rows"):
		return "problem-rows"
	case strings.Contains(path, "/run"):
		return "run"
	case strings.Contains(path, "/stats"):
		return "stats"
	default:
		return "default"
	}
}
