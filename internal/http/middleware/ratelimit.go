package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to the identity whose bucket it draws from.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys signed-in callers by user id and everyone else by
// client IP, in separate namespaces.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := userIDFromCtx(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP keys every request by client IP. Used for the account endpoints,
// where the caller is not signed in yet.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-process token-bucket limiter with one bucket per key.
// Idle buckets are swept every sweepEvery lookups. With several replicas the
// effective limit is multiplied by the replica count.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
	idleTTL time.Duration
}

const sweepEvery = 4096

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst (at least 1).
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Sweep before the lookup so a stale bucket for key is replaced too.
	if rl.lookups++; rl.lookups >= sweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// retryAfter is the whole number of seconds until lim has a token again.
func (rl *RateLimiter) retryAfter(lim *rate.Limiter) int {
	if rl.rps <= 0 {
		return 60
	}
	missing := 1 - lim.TokensAt(rl.now())
	secs := int(math.Ceil(missing / float64(rl.rps)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// IsRateBypass reports whether IdempotencyValidator found a stored outcome
// for this request. Replays are served without spending a token.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Get(ctxKeyRateBypass)
	v, _ := b.(bool)
	return v
}

// Handler rejects over-limit requests with 429 and Retry-After. HTMX callers
// get a warning fragment for the notification area, others a JSON body.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		lim := rl.limiter(rl.keyFn(c))
		if lim.AllowN(rl.now(), 1) {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(rl.retryAfter(lim)))
		if wantsFragment(c) {
			abortWithFragment(c, http.StatusTooManyRequests, "warning", "Too many requests. Please slow down.")
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
