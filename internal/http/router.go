// Package httpapi assembles the Gin engine: the middleware chain, the
// function endpoints under the API base path, the public media route and the
// operational routes (/health, /metrics, /swagger).
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/docs"
	"github.com/tbourn/go-mms-backend/internal/clients/imagegen"
	"github.com/tbourn/go-mms-backend/internal/clients/twilio"
	"github.com/tbourn/go-mms-backend/internal/config"
	"github.com/tbourn/go-mms-backend/internal/http/handlers"
	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
	"github.com/tbourn/go-mms-backend/internal/media"
	"github.com/tbourn/go-mms-backend/internal/repo"
	"github.com/tbourn/go-mms-backend/internal/services"
)

// Gateway sends both the MMS images and the verification SMS.
type Gateway interface {
	services.DeliveryGateway
	services.SMSSender
}

// External bundles the collaborators that live outside the database. Nil
// fields fall back to safe stand-ins: a generator that always fails, a
// gateway that refuses to send, database-backed OTPs and no media route.
type External struct {
	Generator services.ImageGenerator
	Gateway   Gateway
	OTP       services.OTPStore
	Media     media.Store
}

// Account endpoints send SMS and check secrets, so they get a tighter
// per-IP budget on top of the global limiter.
const (
	authRPS   = 0.5
	authBurst = 10
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), identity,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, and then mounts the function endpoints under
// cfg.APIBasePath (e.g. /functions/v1).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Identify: resolve the session once (never rejects)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS, security headers and gzip
func RegisterRoutes(r *gin.Engine, db *gorm.DB, ext External, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	r.SetHTMLTemplate(views.Templates())

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{handlers.HeaderSessionToken},
		SkipPaths:   []string{"/health", "/metrics"},
	}))

	// 4) Panic recovery to a 500 (fragment for HTMX, JSON otherwise)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Identity from bearer token or session cookie
	tokens := services.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	r.Use(middleware.Identify(tokens, cfg.Auth.SessionCookie))

	// 8) Idempotency validation (before rate limiting)
	idem := repo.NewReplays(db, cfg.IdempotencyTTL)
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Seen))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey,
		"HX-Request", "HX-Current-URL", "HX-Target", "HX-Trigger",
	}
	exposeHeaders := []string{
		middleware.HeaderRequestID, "Content-Length", "HX-Redirect", "HX-Trigger",
		handlers.HeaderSessionToken, "Idempotency-Replayed",
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true, // session cookie
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	apiBase := cfg.APIBasePath // e.g. "/functions/v1"
	fnPath := func(p string) string { return strings.TrimSuffix(apiBase, "/") + p }
	private := []string{
		fnPath("/mms"), fnPath("/register"), fnPath("/auth-"),
		fnPath("/get-profile"), fnPath("/update-profile"), fnPath("/history-items"),
	}
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:      cfg.Security.EnableHSTS,
		HSTSMaxAge:      cfg.Security.HSTSMaxAge,
		PrivatePrefixes: private,
		CSP:             middleware.FragmentCSP,
		EnablePolicy:    true,
	}))

	// Compress fragments; images and the metrics exposition are left alone.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/metrics",
		"/media/",
		fnPath("/mms-image"),
	})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/external collaborators
	if ext.Generator == nil {
		ext.Generator = imagegen.Unavailable{Reason: "no provider configured"}
	}
	if ext.Gateway == nil {
		ext.Gateway = twilio.Disabled{}
	}
	if ext.OTP == nil {
		ext.OTP = &services.DBOTPStore{DB: db, MaxAttempts: cfg.Auth.OTPAttempts}
	}

	limits := services.Limits{
		UserDaily:      cfg.MMS.UserDailyLimit,
		GlobalDaily:    cfg.MMS.GlobalDailyLimit,
		PromptMaxChars: cfg.MMS.PromptMaxChars,
	}
	historySvc := services.NewHistoryService(db)
	profileSvc := services.NewProfileService(db)
	mmsSvc := services.NewMMSService(tokens, historySvc, &services.GlobalCounter{DB: db}, profileSvc, ext.Generator, ext.Gateway)
	mmsSvc.Limits = limits

	authSvc := services.NewAuthService(db, ext.OTP, ext.Gateway, tokens)
	authSvc.OTPTTL = cfg.Auth.OTPTTL
	authSvc.OTPLength = cfg.Auth.OTPLength

	deps := handlers.Deps{
		MMS:         mmsSvc,
		Auth:        authSvc,
		Profiles:    profileSvc,
		History:     historySvc,
		Idempotency: idem,
	}
	if ext.Media != nil {
		deps.Media = ext.Media
	}
	h := handlers.New(deps, handlers.Options{
		Limits:        limits,
		SessionCookie: cfg.Auth.SessionCookie,
		SecureCookie:  cfg.Auth.CookieSecure,
		APIBasePath:   apiBase,
	})

	// Function endpoints
	api := groupWithPrefix(r, apiBase)
	{
		// MMS workflow
		api.POST("/mms", h.SubmitMMS)

		// Accounts
		accounts := middleware.NewRateLimiter(authRPS, authBurst, middleware.KeyByIP()).Handler()
		api.POST("/register", accounts, h.Register)
		api.POST("/auth-password", accounts, h.PasswordLogin)
		api.POST("/auth-verify", accounts, h.VerifyOTP)

		// Profile
		api.GET("/get-profile", h.GetProfile)
		api.POST("/update-profile", h.UpdateProfile)

		// History
		api.GET("/history-items", h.ListHistory)
		api.GET("/mms-image", h.GetImage)
	}

	// Staged media fetched by the gateway
	r.GET("/media/:id", h.GetMedia)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
