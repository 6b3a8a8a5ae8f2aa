// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/bierstube/storefront/internal/i18n"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
		idle:     3 * time.Minute,
	}
}

// Run evicts idle visitors every minute until stop is closed.
func (rl *RateLimiter) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getVisitor(c.ClientIP()).Allow() {
			abortWith(c, http.StatusTooManyRequests, "RATE_LIMITED", i18n.KeyRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// Limiters holds the per-route-group buckets.
type Limiters struct {
	General  *RateLimiter
	Auth     *RateLimiter
	Checkout *RateLimiter
}

func DefaultLimiters() *Limiters {
	return &Limiters{
		General:  NewRateLimiter(rate.Every(100*time.Millisecond), 20), // 10 requests per second
		Auth:     NewRateLimiter(rate.Every(12*time.Second), 5),        // 5 auth requests per minute
		Checkout: NewRateLimiter(rate.Every(6*time.Second), 10),        // 10 orders per minute
	}
}

// Run starts eviction for every limiter.
func (l *Limiters) Run(stop <-chan struct{}) {
	for _, rl := range []*RateLimiter{l.General, l.Auth, l.Checkout} {
		go rl.Run(stop)
	}
}
