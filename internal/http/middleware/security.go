package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// FragmentCSP locks HTML fragments down to same-origin images. The fragments
// are swapped into the page by HTMX, so they never need scripts or frames.
const FragmentCSP = "default-src 'none'; img-src 'self'; style-src 'self'; frame-ancestors 'none'; form-action 'self'"

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS bool          // only honoured for HTTPS requests
	HSTSMaxAge time.Duration // 180 days when <= 0

	// PrivatePrefixes are path prefixes serving per-user content. Responses
	// under them get Cache-Control: no-store (handlers may override it) and
	// the CSP below.
	PrivatePrefixes []string
	CSP             string

	EnablePolicy bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

// SecurityHeaders attaches browser hardening headers to every response and
// exposes X-Request-ID to cross-origin scripts when it is set.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge / time.Second)
	if maxAge <= 0 {
		maxAge = int(180 * 24 * time.Hour / time.Second)
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if hasAnyPrefix(c.Request.URL.Path, opt.PrivatePrefixes) {
			h.Set("Cache-Control", "no-store")
			if opt.CSP != "" {
				h.Set("Content-Security-Policy", opt.CSP)
			}
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(HeaderRequestID) != "" {
			exposeHeader(h, HeaderRequestID)
		}

		c.Next()
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// exposeHeader appends name to Access-Control-Expose-Headers once.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	if cur == "" {
		h.Set(key, name)
		return
	}
	for _, part := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(part), name) {
			return
		}
	}
	h.Set(key, cur+", "+name)
}

// isHTTPS reports whether the request arrived over TLS, directly or through
// a proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
