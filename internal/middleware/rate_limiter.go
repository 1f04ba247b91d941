package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/auratask/internal/errors"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused bucket is kept before eviction.
const DefaultIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key. Buckets idle for longer than
// the idle TTL are swept on access, at most once per TTL.
type RateLimiter struct {
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	ttl := DefaultIdleTTL
	// An evicted bucket restarts full, so keep it at least until it would have refilled.
	if limit > 0 && limit != rate.Inf {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}
	return &RateLimiter{
		limit:     limit,
		burst:     burst,
		idleTTL:   ttl,
		now:       time.Now,
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

// PerMinute builds a limiter allowing n requests a minute with a burst of n.
func PerMinute(n int) *RateLimiter {
	return NewRateLimiter(rate.Limit(float64(n)/60), n)
}

// WithIdleTTL overrides how long unused buckets are kept.
func (rl *RateLimiter) WithIdleTTL(ttl time.Duration) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.idleTTL = ttl
	return rl
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweep(now)
	}

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep drops buckets not used within the idle TTL. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.idleTTL {
			delete(rl.visitors, key)
		}
	}
	rl.lastSweep = now
}

// Len reports how many keys currently hold a bucket.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Allow reports whether key may make another request now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}

// Middleware limits by authenticated user, falling back to the client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(UserKey(c)) {
			apierrors.TooManyRequests(c, "Rate limit exceeded, try again shortly")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserKey identifies the caller for rate limiting
func UserKey(c *gin.Context) string {
	if userID, ok := GetUserID(c); ok {
		return fmt.Sprintf("user:%d", userID)
	}
	return "ip:" + c.ClientIP()
}
