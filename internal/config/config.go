// Package config loads the service settings from environment variables,
// optionally layered over a YAML file named by CONFIG_FILE. Environment
// values always win over the file, and the file wins over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-mms-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines session and one-time-password settings.
type AuthConfig struct {
	JWTSecret     string        // JWT_SECRET (HS256 signing key)
	SessionTTL    time.Duration // SESSION_TTL
	SessionCookie string        // SESSION_COOKIE (cookie name)
	CookieSecure  bool          // SESSION_COOKIE_SECURE (HTTPS-only cookie)
	OTPTTL        time.Duration // OTP_TTL
	OTPLength     int           // OTP_LENGTH (digits)
	OTPAttempts   int           // OTP_MAX_ATTEMPTS per issued code
}

// MMSConfig defines the daily quotas and prompt limits of the MMS workflow.
type MMSConfig struct {
	UserDailyLimit   int // MMS_USER_DAILY_LIMIT
	GlobalDailyLimit int // MMS_GLOBAL_DAILY_LIMIT
	PromptMaxChars   int // MMS_PROMPT_MAX
}

// ImageGenConfig configures the OpenAI-compatible image generation provider.
type ImageGenConfig struct {
	APIKey          string        // OPENAI_API_KEY (empty => provider unavailable)
	BaseURL         string        // OPENAI_BASE_URL
	Model           string        // OPENAI_IMAGE_MODEL
	Size            string        // OPENAI_IMAGE_SIZE
	Timeout         time.Duration // OPENAI_TIMEOUT
	MaxRetries      int           // OPENAI_MAX_RETRIES
	SimulateFailure bool          // IMAGEGEN_SIMULATE_FAILURE
}

// TwilioConfig configures the SMS/MMS delivery gateway.
type TwilioConfig struct {
	AccountSID string        // TWILIO_ACCOUNT_SID (empty => gateway disabled)
	AuthToken  string        // TWILIO_AUTH_TOKEN
	FromNumber string        // TWILIO_FROM_NUMBER
	BaseURL    string        // TWILIO_BASE_URL
	Timeout    time.Duration // TWILIO_TIMEOUT
	MaxRetries int           // TWILIO_MAX_RETRIES
}

// MediaConfig configures where generated images are staged for the gateway.
type MediaConfig struct {
	RedisURL      string        // REDIS_URL (empty => in-process store)
	TTL           time.Duration // MEDIA_TTL
	PublicBaseURL string        // PUBLIC_BASE_URL used to build MediaUrl links
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 60s (image generation is slow)
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for function routes

	// Database
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Domain
	Auth     AuthConfig
	MMS      MMSConfig
	ImageGen ImageGenConfig
	Twilio   TwilioConfig
	Media    MediaConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds the configuration and validates it. The returned Config is
// populated even when validation fails.
func Load() (Config, error) {
	ov, err := readOverlay(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}
	src := source{file: ov}

	cfg := Config{
		// Server
		Port:              src.str("PORT", "8080"),
		ReadTimeout:       src.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: src.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      src.duration("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       src.duration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    src.integer("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(src.str("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(src.str("LOG_LEVEL", "info")),
		LogPretty:      src.flag("LOG_PRETTY", false),
		SwaggerEnabled: src.flag("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(src.str("API_BASE_PATH", "/functions/v1")),

		// Database
		DBDriver:    strings.ToLower(src.str("DB_DRIVER", "sqlite")),
		DBPath:      src.str("DB_PATH", "app.db"),
		DatabaseURL: src.str("DATABASE_URL", ""),

		// Rate limiting
		RateRPS:   src.number("RATE_RPS", 5.0),
		RateBurst: src.integer("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(src.str("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: src.flag("ENABLE_HSTS", false),
			HSTSMaxAge: src.duration("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: src.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		Auth: AuthConfig{
			JWTSecret:     src.str("JWT_SECRET", ""),
			SessionTTL:    src.duration("SESSION_TTL", 12*time.Hour),
			SessionCookie: src.str("SESSION_COOKIE", "mms_session"),
			CookieSecure:  src.flag("SESSION_COOKIE_SECURE", false),
			OTPTTL:        src.duration("OTP_TTL", 5*time.Minute),
			OTPLength:     src.integer("OTP_LENGTH", 6),
			OTPAttempts:   src.integer("OTP_MAX_ATTEMPTS", 5),
		},
		MMS: MMSConfig{
			UserDailyLimit:   src.integer("MMS_USER_DAILY_LIMIT", 5),
			GlobalDailyLimit: src.integer("MMS_GLOBAL_DAILY_LIMIT", 20),
			PromptMaxChars:   src.integer("MMS_PROMPT_MAX", 300),
		},
		ImageGen: ImageGenConfig{
			APIKey:          src.str("OPENAI_API_KEY", ""),
			BaseURL:         strings.TrimRight(src.str("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
			Model:           src.str("OPENAI_IMAGE_MODEL", "gpt-image-1"),
			Size:            src.str("OPENAI_IMAGE_SIZE", "1024x1024"),
			Timeout:         src.duration("OPENAI_TIMEOUT", 120*time.Second),
			MaxRetries:      src.integer("OPENAI_MAX_RETRIES", 2),
			SimulateFailure: src.flag("IMAGEGEN_SIMULATE_FAILURE", false),
		},
		Twilio: TwilioConfig{
			AccountSID: src.str("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  src.str("TWILIO_AUTH_TOKEN", ""),
			FromNumber: src.str("TWILIO_FROM_NUMBER", ""),
			BaseURL:    strings.TrimRight(src.str("TWILIO_BASE_URL", "https://api.twilio.com/2010-04-01"), "/"),
			Timeout:    src.duration("TWILIO_TIMEOUT", 30*time.Second),
			MaxRetries: src.integer("TWILIO_MAX_RETRIES", 2),
		},
		Media: MediaConfig{
			RedisURL:      src.str("REDIS_URL", ""),
			TTL:           src.duration("MEDIA_TTL", time.Hour),
			PublicBaseURL: strings.TrimRight(src.str("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     src.flag("OTEL_ENABLED", false),
			Endpoint:    src.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    src.flag("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: src.str("OTEL_SERVICE_NAME", "go-mms-backend"),
			SampleRatio: src.number("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	cfg.normalize()
	return cfg, cfg.Validate()
}

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	switch c.DBDriver {
	case "postgresql", "pg":
		c.DBDriver = "postgres"
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be one of: debug, info, warn, error, fatal, panic", c.LogLevel))
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")

	switch c.DBDriver {
	case "sqlite":
		check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(c.DatabaseURL) != "", "DATABASE_URL must be set when DB_DRIVER=postgres")
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q must be one of: sqlite, postgres", c.DBDriver))
	}

	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")

	check(len(c.Auth.JWTSecret) >= 16, "JWT_SECRET must be at least 16 characters")
	check(c.Auth.SessionTTL > 0 && c.Auth.OTPTTL > 0, "SESSION_TTL and OTP_TTL must be > 0")
	check(c.Auth.OTPLength >= 4 && c.Auth.OTPLength <= 10, "OTP_LENGTH must be between 4 and 10")
	check(c.Auth.OTPAttempts >= 1, "OTP_MAX_ATTEMPTS must be >= 1")

	check(c.MMS.UserDailyLimit >= 1 && c.MMS.GlobalDailyLimit >= 1, "MMS daily limits must be >= 1")
	check(c.MMS.PromptMaxChars >= 1, "MMS_PROMPT_MAX must be >= 1")
	check(c.ImageGen.MaxRetries >= 0 && c.Twilio.MaxRetries >= 0, "provider retries must be >= 0")
	check(c.Media.TTL > 0, "MEDIA_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// String renders a log-safe summary (secrets omitted).
func (c Config) String() string {
	return fmt.Sprintf("port=%s db=%s base=%s mms(user=%d global=%d max=%d) imagegen=%t twilio=%t redis=%t",
		c.Port, c.DBDriver, c.APIBasePath,
		c.MMS.UserDailyLimit, c.MMS.GlobalDailyLimit, c.MMS.PromptMaxChars,
		c.ImageGen.APIKey != "" && !c.ImageGen.SimulateFailure,
		c.Twilio.AccountSID != "",
		c.Media.RedisURL != "")
}

// source resolves a key from the environment first, then the overlay file.
// Unset, empty and unparsable values yield the default.
type source struct {
	file map[string]string
}

func (s source) lookup(k string) (string, bool) {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v, true
	}
	v, ok := s.file[k]
	return v, ok && v != ""
}

func (s source) str(k, def string) string {
	if v, ok := s.lookup(k); ok {
		return v
	}
	return def
}

func (s source) number(k string, def float64) float64 {
	return parseOr(s, k, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func (s source) integer(k string, def int) int {
	return parseOr(s, k, def, strconv.Atoi)
}

func (s source) duration(k string, def time.Duration) time.Duration {
	return parseOr(s, k, def, time.ParseDuration)
}

func (s source) flag(k string, def bool) bool {
	v, ok := s.lookup(k)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func parseOr[T any](s source, k string, def T, parse func(string) (T, error)) T {
	v, ok := s.lookup(k)
	if !ok {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return out
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
