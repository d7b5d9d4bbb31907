package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "go-mms-backend"

// sessionClaims carries the account id in the standard subject claim.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens. It implements
// IdentityResolver so the MMS workflow can resolve raw credentials.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// NewTokenIssuer builds an issuer; a non-positive ttl defaults to 12h.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenIssuer{Secret: []byte(secret), TTL: ttl}
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Issue signs a session for userID and returns it with its expiry.
func (t *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("token: empty subject")
	}
	now := t.now()
	exp := now.Add(t.TTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Resolve verifies credential (optionally prefixed with "Bearer ") and
// returns its subject. Every failure is reported as ErrUnauthorized.
func (t *TokenIssuer) Resolve(_ context.Context, credential string) (string, error) {
	raw := strings.TrimSpace(credential)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return "", ErrUnauthorized
	}

	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
