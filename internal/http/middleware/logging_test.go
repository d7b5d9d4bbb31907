package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	cases := []struct {
		in   string
		keep bool
	}{
		{"", false},
		{"abc-123", true},
		{"trace:01HV.5_x", true},
		{strings.Repeat("a", 65), false},
		{"has space", false},
		{"<script>", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if tc.in != "" {
			req.Header.Set("x-request-id", tc.in)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get(HeaderRequestID)
		if got != w.Body.String() || got == "" {
			t.Fatalf("%q: header %q body %q", tc.in, got, w.Body.String())
		}
		if tc.keep && got != tc.in {
			t.Fatalf("%q: not propagated, got %q", tc.in, got)
		}
		if !tc.keep && (got == tc.in || len(got) != 36) {
			t.Fatalf("%q: expected fresh uuid, got %q", tc.in, got)
		}
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.POST("/functions/v1/mms", func(c *gin.Context) { panic("kaboom") })
	r.GET("/half", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late")
	})

	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/mms", nil)
		req.Header.Set(HeaderRequestID, "rid-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if w.Code != http.StatusInternalServerError || body["code"] != "internal_error" || body["request_id"] != "rid-1" {
			t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
		}
		if !strings.Contains(buf.String(), "panic recovered") || !strings.Contains(buf.String(), "kaboom") {
			t.Fatalf("log=%s", buf.String())
		}
	})

	t.Run("htmx fragment", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/mms", nil)
		req.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		want := `<div id="notification-area" class="alert alert-error">An unexpected server error occurred.</div>`
		if w.Code != http.StatusInternalServerError || w.Body.String() != want {
			t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Fatalf("content-type=%q", ct)
		}
	})

	t.Run("after write", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/half", nil))
		if w.Code != http.StatusOK || w.Body.String() != "partial" {
			t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
		}
	})
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if LoggerFrom(c) == nil {
		t.Fatal("fallback logger is nil")
	}

	l := log.With().Str("request_id", "rid-9").Logger()
	attachLogger(c, &l)
	LoggerFrom(c).Info().Msg("from gin")
	zerolog.Ctx(c.Request.Context()).Info().Msg("from ctx")

	lines := logLines(t, buf)
	if len(lines) != 2 || lines[0]["request_id"] != "rid-9" || lines[1]["request_id"] != "rid-9" {
		t.Fatalf("lines=%v", lines)
	}
}
