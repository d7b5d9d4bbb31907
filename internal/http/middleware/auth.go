// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. Identify reads a bearer token from
// the Authorization header, or the session cookie when the header is absent,
// and stores both the raw credential and the resolved user id in the Gin
// context. It never rejects a request: endpoints decide what an anonymous
// caller gets, and the MMS workflow performs its own identity check on the
// raw credential.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyUserID     = "userID"
	ctxKeyCredential = "credential"
)

// CredentialResolver maps a raw credential to a user id.
type CredentialResolver interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// Identify resolves the caller once per request. cookieName may be empty to
// accept bearer tokens only.
func Identify(res CredentialResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := extractCredential(c, cookieName)
		c.Set(ctxKeyCredential, cred)
		if cred != "" && res != nil {
			if uid, err := res.Resolve(c.Request.Context(), cred); err == nil && uid != "" {
				c.Set(ctxKeyUserID, uid)
			}
		}
		c.Next()
	}
}

// UserID returns the id stored by Identify, or "" for anonymous callers.
func UserID(c *gin.Context) string { return userIDFromCtx(c) }

func userIDFromCtx(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	s, _ := v.(string)
	return s
}

// Credential returns the raw credential seen by Identify, or "".
func Credential(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyCredential); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func extractCredential(c *gin.Context, cookieName string) string {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
