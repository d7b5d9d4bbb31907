// Package handlers exposes the function-style endpoints of the MMS backend:
//   - POST /mms             (generate and deliver an image)
//   - POST /register        (create an account, send a signup code)
//   - POST /auth-password   (first login factor, send a login code)
//   - POST /auth-verify     (second factor, open a session)
//   - GET  /get-profile     (profile card)
//   - POST /update-profile  (rename)
//   - GET  /history-items   (gallery page)
//   - GET  /mms-image       (stored image bytes)
//   - GET  /media/{id}      (staged media fetched by the gateway)
//
// Handlers are transport-thin: they read the form or JSON body, call a
// service, and translate the result into a status plus an HTML fragment or
// an HX-Redirect header for the hypermedia front end.
package handlers

import (
	"context"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/media"
	"github.com/tbourn/go-mms-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// MMSService runs the MMS request workflow.
type MMSService interface {
	// Submit resolves the credential, applies the guards and returns the
	// terminal outcome. It never returns an error.
	Submit(ctx context.Context, credential, prompt string) services.Outcome
}

// AuthService covers registration and the two login factors.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (string, error)
	PasswordLogin(ctx context.Context, email, password string) (string, error)
	VerifyOTP(ctx context.Context, phone, code string, purpose domain.OTPPurpose) (services.Session, error)
}

// ProfileService reads and renames the caller's profile.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateUsername(ctx context.Context, userID, username string) (string, error)
}

// HistoryService lists and loads the caller's own history records.
type HistoryService interface {
	ListPage(ctx context.Context, userID string, limit, offset int) ([]domain.HistoryRecord, int, int, error)
	Image(ctx context.Context, userID, id string) (*domain.HistoryRecord, error)
}

// IdempotencyStore keeps the outcome label of completed MMS submissions per
// (user, scope, key). Claim reserves a key for one running request; the
// holder either completes it with Put or gives it back with Release.
type IdempotencyStore interface {
	Get(ctx context.Context, userID, scope, key string) (outcome string, found bool, err error)
	Claim(ctx context.Context, userID, scope, key string) (bool, error)
	Put(ctx context.Context, userID, scope, key, outcome string, status int) error
	Release(ctx context.Context, userID, scope, key string) error
}

// MediaStore serves staged gateway media.
type MediaStore interface {
	Get(ctx context.Context, id string) (media.Object, error)
}

//
// Handler wiring
//

// Deps are the services the handlers call. Idempotency and Media may be nil;
// the matching features are then disabled.
type Deps struct {
	MMS         MMSService
	Auth        AuthService
	Profiles    ProfileService
	History     HistoryService
	Idempotency IdempotencyStore
	Media       MediaStore
}

// Options tune the transport side of the handlers.
type Options struct {
	// Limits are quoted in quota and length messages.
	Limits services.Limits
	// SessionCookie names the HttpOnly cookie carrying the session token.
	SessionCookie string
	// SecureCookie marks the session cookie Secure (HTTPS only).
	SecureCookie bool
	// APIBasePath prefixes links rendered into fragments, e.g. "/functions/v1".
	APIBasePath string
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	mms      MMSService
	auth     AuthService
	profiles ProfileService
	history  HistoryService
	idem     IdempotencyStore
	media    MediaStore
	opts     Options
}

// New constructs Handlers bound to the given services.
func New(d Deps, opts Options) *Handlers {
	if opts.Limits == (services.Limits{}) {
		opts.Limits = services.DefaultLimits()
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "mms_session"
	}
	if opts.APIBasePath == "/" {
		opts.APIBasePath = ""
	}
	return &Handlers{
		mms:      d.MMS,
		auth:     d.Auth,
		profiles: d.Profiles,
		history:  d.History,
		idem:     d.Idempotency,
		media:    d.Media,
		opts:     opts,
	}
}

// link builds an absolute path under the API base path.
func (h *Handlers) link(path string) string {
	return h.opts.APIBasePath + path
}
