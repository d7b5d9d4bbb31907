package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets clients retry POST /mms without sending a second
// message: the first recorded outcome is replayed for the same user, route
// and key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~:\-]+$`)

// IdempotencyOptions constrains accepted keys. Zero values mean 200
// characters and the token alphabet [A-Za-z0-9._~:-].
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether an unexpired outcome is stored for
// (userID, scope, key). Scope is the matched route pattern.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error)

// GetIdempotencyKey returns the key accepted by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s, _ := c.Get(ctxKeyIdemKey)
	key, _ := s.(string)
	return key, key != ""
}

// IsReplay reports whether lookup found a stored outcome for this request.
func IsReplay(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyIdemReplay)
	b, _ := v.(bool)
	return b
}

// IdempotencyValidator checks the Idempotency-Key header on POST requests
// and stashes it for the handler; other methods ignore the header. A
// malformed key is rejected with 400. For signed-in callers lookup is asked
// whether a stored outcome exists; a hit marks the request as a replay and
// exempts it from rate limiting. Lookup failures are logged and otherwise
// ignored. The handler stays responsible for serving the stored outcome.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pattern := opts.Pattern
	if pattern == nil {
		pattern = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pattern.MatchString(key) {
			if wantsFragment(c) {
				abortWithFragment(c, http.StatusBadRequest, "warning", "Invalid Idempotency-Key.")
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if uid := userIDFromCtx(c); uid != "" && lookup != nil {
			found, err := lookup(c.Request.Context(), uid, c.FullPath(), key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case found:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
