package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// limiterMaxIdle is how long an account's limiter may sit unused
	// before it is eligible for pruning.
	limiterMaxIdle = 10 * time.Minute
	// limiterPruneAbove bounds the map: once it grows past this many
	// entries, idle limiters are swept on the next lookup.
	limiterPruneAbove = 4096
)

// GenerationRateLimiter caps how fast a single account can start
// generation sessions. Limiters live in memory per instance; the quota
// ledger remains the durable gate.
type GenerationRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*accountLimiter
	limit    rate.Limit
	burst    int

	maxIdle    time.Duration
	pruneAbove int
	now        func() time.Time
}

type accountLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewGenerationRateLimiter(perMinute float64, burst int) *GenerationRateLimiter {
	return &GenerationRateLimiter{
		limiters:   make(map[string]*accountLimiter),
		limit:      rate.Limit(perMinute / 60.0),
		burst:      burst,
		maxIdle:    limiterMaxIdle,
		pruneAbove: limiterPruneAbove,
		now:        time.Now,
	}
}

func (l *GenerationRateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.limiters) >= l.pruneAbove {
		l.pruneLocked(now)
	}

	al, ok := l.limiters[key]
	if !ok {
		al = &accountLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = al
	}
	al.lastSeen = now
	return al.lim
}

// pruneLocked drops limiters idle longer than maxIdle. Caller holds mu.
func (l *GenerationRateLimiter) pruneLocked(now time.Time) {
	for key, al := range l.limiters {
		if now.Sub(al.lastSeen) > l.maxIdle {
			delete(l.limiters, key)
		}
	}
}

// Middleware rejects requests beyond the per-account rate with 429.
func (l *GenerationRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		if !l.limiterFor(key).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many generation requests, slow down"})
			c.Abort()
			return
		}

		c.Next()
	}
}
