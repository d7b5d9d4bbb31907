package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions tunes RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are replaced with "[REDACTED]" in addition to
	// Authorization, Cookie and Set-Cookie. Case-insensitive.
	MaskHeaders []string
	// SkipPaths are matched exactly against the URL path and produce no
	// access log line (health checks, scrapes).
	SkipPaths []string
	// MaxQuery caps the logged query length; 1024 when <= 0.
	MaxQuery int
}

// Patterns for the personal data that shows up in this service's URLs and
// headers. JWTs go first because their base64 segments can contain digit
// runs that the phone pattern would otherwise eat.
var (
	jwtRE   = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+(@|%40)[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneRE = regexp.MustCompile(`(?:\+|%2B)?\d[\d ()\-]{6,}\d`)
	codeRE  = regexp.MustCompile(`(?i)\b(token|code)=\d{4,10}\b`)
)

// Redact scrubs tokens, ids, emails, phone numbers and one-time codes from s.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = jwtRE.ReplaceAllString(s, "[REDACTED:token]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = codeRE.ReplaceAllString(s, "$1=[REDACTED:code]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	s = phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// RedactingLogger attaches a request-scoped logger and writes one access log
// line per request with personal data scrubbed from the query and headers.
// Bodies are never logged. Level follows the status: error for 5xx, warn
// for 4xx, info otherwise.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{"authorization": {}, "cookie": {}, "set-cookie": {}}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}
	maxQuery := opts.MaxQuery
	if maxQuery <= 0 {
		maxQuery = 1024
	}

	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("route", route).
			Logger()
		attachLogger(c, &l)

		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		headers := zerolog.Dict()
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers.Str(k, "[REDACTED]")
				continue
			}
			headers.Str(k, Redact(strings.Join(vv, ", ")))
		}
		query := c.Request.URL.RawQuery
		if len(query) > maxQuery {
			query = query[:maxQuery] + "…"
		}

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		if uid := userIDFromCtx(c); uid != "" {
			ev = ev.Str("user_id", uid)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", Redact(c.Errors.String()))
		}
		ev.Str("query", Redact(query)).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Dict("headers", headers).
			Msg("http_request")
	}
}
