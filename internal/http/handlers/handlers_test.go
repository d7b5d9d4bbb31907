package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
	"github.com/tbourn/go-mms-backend/internal/media"
	"github.com/tbourn/go-mms-backend/internal/services"
)

// ---------- identity ----------

type tokenMap map[string]string

func (m tokenMap) Resolve(_ context.Context, cred string) (string, error) {
	if id, ok := m[cred]; ok {
		return id, nil
	}
	return "", services.ErrUnauthorized
}

var testTokens = tokenMap{"tok-u1": "u1", "tok-u2": "u2"}

// ---------- service stubs ----------

type stubMMS struct {
	mu     sync.Mutex
	out    services.Outcome
	calls  int
	cred   string
	prompt string

	// when set, Submit signals started and then waits for hold to close
	started chan struct{}
	hold    chan struct{}
}

func (s *stubMMS) Submit(_ context.Context, credential, prompt string) services.Outcome {
	if s.hold != nil {
		s.started <- struct{}{}
		<-s.hold
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.cred, s.prompt = credential, prompt
	return s.out
}

type stubAuth struct {
	register func(services.RegisterInput) (string, error)
	login    func(email, password string) (string, error)
	verify   func(phone, code string, p domain.OTPPurpose) (services.Session, error)
}

func (s stubAuth) Register(_ context.Context, in services.RegisterInput) (string, error) {
	return s.register(in)
}

func (s stubAuth) PasswordLogin(_ context.Context, email, password string) (string, error) {
	return s.login(email, password)
}

func (s stubAuth) VerifyOTP(_ context.Context, phone, code string, p domain.OTPPurpose) (services.Session, error) {
	return s.verify(phone, code, p)
}

type stubProfiles struct {
	get    func(uid string) (*domain.Profile, error)
	update func(uid, name string) (string, error)
}

func (s stubProfiles) Get(_ context.Context, uid string) (*domain.Profile, error) { return s.get(uid) }

func (s stubProfiles) UpdateUsername(_ context.Context, uid, name string) (string, error) {
	return s.update(uid, name)
}

type stubHistory struct {
	list  func(uid string, limit, offset int) ([]domain.HistoryRecord, int, int, error)
	image func(uid, id string) (*domain.HistoryRecord, error)
}

func (s stubHistory) ListPage(_ context.Context, uid string, limit, offset int) ([]domain.HistoryRecord, int, int, error) {
	return s.list(uid, limit, offset)
}

func (s stubHistory) Image(_ context.Context, uid, id string) (*domain.HistoryRecord, error) {
	return s.image(uid, id)
}

// memIdem stores outcome labels by tuple; an empty label is a running claim.
type memIdem struct {
	mu   sync.Mutex
	recs map[string]string
	err  error
}

func newMemIdem() *memIdem { return &memIdem{recs: map[string]string{}} }

func (m *memIdem) Get(_ context.Context, uid, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v := m.recs[uid+"|"+scope+"|"+key]
	return v, v != "", nil
}

func (m *memIdem) Claim(_ context.Context, uid, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	k := uid + "|" + scope + "|" + key
	if _, held := m.recs[k]; held {
		return false, nil
	}
	m.recs[k] = ""
	return true, nil
}

func (m *memIdem) Put(_ context.Context, uid, scope, key, outcome string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	k := uid + "|" + scope + "|" + key
	if m.recs[k] == "" {
		m.recs[k] = outcome
	}
	return nil
}

func (m *memIdem) Release(_ context.Context, uid, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	k := uid + "|" + scope + "|" + key
	if v, ok := m.recs[k]; ok && v == "" {
		delete(m.recs, k)
	}
	return nil
}

type mapMedia map[string]media.Object

func (m mapMedia) Get(_ context.Context, id string) (media.Object, error) {
	if o, ok := m[id]; ok {
		return o, nil
	}
	return media.Object{}, media.ErrNotFound
}

// ---------- engine ----------

const testBase = "/functions/v1"

func newEngine(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(views.Templates())
	r.Use(middleware.Identify(testTokens, "mms_session"))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	api := r.Group(testBase)
	api.POST("/mms", h.SubmitMMS)
	api.POST("/register", h.Register)
	api.POST("/auth-password", h.PasswordLogin)
	api.POST("/auth-verify", h.VerifyOTP)
	api.GET("/get-profile", h.GetProfile)
	api.POST("/update-profile", h.UpdateProfile)
	api.GET("/history-items", h.ListHistory)
	api.GET("/mms-image", h.GetImage)
	r.GET("/media/:id", h.GetMedia)
	return r
}

type reqOpt func(*http.Request)

func bearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func header(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func do(r *gin.Engine, method, path, contentType, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const (
	ctJSON = "application/json"
	ctForm = "application/x-www-form-urlencoded"
)

func mustContain(t *testing.T, w *httptest.ResponseRecorder, status int, parts ...string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d body=%s", w.Code, status, w.Body.String())
	}
	for _, p := range parts {
		if !strings.Contains(w.Body.String(), p) {
			t.Fatalf("body %q missing %q", w.Body.String(), p)
		}
	}
}

var errBoom = errors.New("boom")
