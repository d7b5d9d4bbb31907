// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// Recommended order: RequestID, RedactingLogger, Recovery, then the rest, so
// that every log line and every panic carries the correlation id.
package middleware

import (
	"fmt"
	"html"
	"net/http"
	"regexp"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// HeaderRequestID carries the correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

const (
	ctxKeyRequestID = "requestID"
	ctxKeyLogger    = "logger"

	// msgUnexpected mirrors the handlers' generic server-error text.
	msgUnexpected = "An unexpected server error occurred."
)

// Client-supplied ids are echoed into logs and headers, so only short
// token-like values are trusted.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:\-]{1,64}$`)

// RequestID reuses a well-formed incoming X-Request-ID or mints a UUIDv4, then
// stores it in the context and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if !requestIDPattern.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, rid)
		c.Writer.Header().Set(HeaderRequestID, rid)
		c.Next()
	}
}

// RequestIDFrom returns the id stored by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyRequestID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Recovery turns a panic into a 500. HTMX and HTML callers get the standard
// notification fragment, everyone else the JSON error body. Nothing is
// written when the handler had already started the response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := RequestIDFrom(c)
			LoggerFrom(c).Error().
				Str("request_id", rid).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			if rid != "" {
				c.Header(HeaderRequestID, rid)
			}
			if wantsFragment(c) {
				abortWithFragment(c, http.StatusInternalServerError, "error", msgUnexpected)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

func wantsFragment(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true" || strings.Contains(c.GetHeader("Accept"), "text/html")
}

// abortWithFragment answers with a notification-area alert. Middleware runs
// before templates are guaranteed to be loaded, so the markup is inline.
func abortWithFragment(c *gin.Context, status int, level, msg string) {
	body := fmt.Sprintf(`<div id="notification-area" class="alert alert-%s">%s</div>`, level, html.EscapeString(msg))
	c.Data(status, "text/html; charset=utf-8", []byte(body))
	c.Abort()
}

// attachLogger makes l reachable from handlers (LoggerFrom) and from services
// (zerolog.Ctx on the request context).
func attachLogger(c *gin.Context, l *zerolog.Logger) {
	c.Set(ctxKeyLogger, l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// LoggerFrom returns the request-scoped logger, or the global one when no
// logging middleware ran. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(ctxKeyLogger); ok {
		if l, ok := v.(*zerolog.Logger); ok {
			return l
		}
	}
	l := log.Logger
	return &l
}
