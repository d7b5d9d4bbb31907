package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
)

// capturingEngine installs the request id middleware and a logger writing to buf.
func capturingEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(views.Templates())
	logger := zerolog.New(buf)
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Next()
	})
	return r
}

func TestFail_Envelope(t *testing.T) {
	cases := []struct {
		status int
		code   string
		logged bool
	}{
		{http.StatusNotFound, ErrCodeNotFound, false},
		{http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, false},
		{http.StatusInternalServerError, ErrCodeInternal, true},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			var buf bytes.Buffer
			r := capturingEngine(&buf)
			r.GET("/x", func(c *gin.Context) {
				Fail(c, tc.status, tc.code, "media not found")
			}, func(c *gin.Context) {
				c.String(http.StatusOK, "unreachable")
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set(middleware.HeaderRequestID, "rid-"+tc.code)
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status=%d", w.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v (%s)", err, w.Body.String())
			}
			if er.RequestID != "rid-"+tc.code || er.Code != tc.code || er.Message != "media not found" {
				t.Fatalf("body=%+v", er)
			}
			if got := strings.Contains(buf.String(), `"level":"error"`); got != tc.logged {
				t.Fatalf("logged=%v log=%s", got, buf.String())
			}
		})
	}
}

func TestFragmentHelpers(t *testing.T) {
	var buf bytes.Buffer
	r := capturingEngine(&buf)
	r.GET("/quota", func(c *gin.Context) {
		notify(c, http.StatusTooManyRequests, views.LevelWarning, "Global daily message limit reached. Try again tomorrow.")
	})
	r.GET("/profile", func(c *gin.Context) {
		alert(c, http.StatusInternalServerError, views.ProfileView, views.LevelError, MsgProfileLoad)
	})
	r.POST("/login", func(c *gin.Context) {
		redirect(c, "/verify-2fa?phone=%2B48600100200")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quota", nil))
	want := `<div id="notification-area" class="alert alert-warning">Global daily message limit reached. Try again tomorrow.</div>`
	if w.Code != http.StatusTooManyRequests || w.Body.String() != want {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("content-type=%q", w.Header().Get("Content-Type"))
	}
	if buf.Len() != 0 {
		t.Fatalf("client errors must not log: %s", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `id="profile-view"`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(buf.String(), `"target":"profile-view"`) {
		t.Fatalf("log=%s", buf.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusOK || w.Body.Len() != 0 || w.Header().Get("HX-Redirect") != "/verify-2fa?phone=%2B48600100200" {
		t.Fatalf("status=%d redirect=%q body=%q", w.Code, w.Header().Get("HX-Redirect"), w.Body.String())
	}
}
