package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/services"
)

func strptr(s string) *string { return &s }

func TestGetProfile(t *testing.T) {
	now := time.Now()
	profiles := stubProfiles{get: func(uid string) (*domain.Profile, error) {
		switch uid {
		case "u1":
			return &domain.Profile{ID: "u1", Username: strptr("ada"), PhoneNumber: "+48600100200", PhoneConfirmedAt: &now}, nil
		case "u2":
			return nil, errBoom
		}
		return nil, services.ErrProfileNotFound
	}}
	r := newEngine(New(Deps{Profiles: profiles}, Options{}))

	w := do(r, http.MethodGet, testBase+"/get-profile", "", "", bearer("tok-u1"))
	mustContain(t, w, http.StatusOK, `id="profile-view"`, "Hello, ada!", "&#43;48600100200", "verified")

	w = do(r, http.MethodGet, testBase+"/get-profile", "", "")
	mustContain(t, w, http.StatusUnauthorized, `id="profile-view"`, "Authorization error. Could not load profile.")

	w = do(r, http.MethodGet, testBase+"/get-profile", "", "", bearer("tok-u2"))
	mustContain(t, w, http.StatusInternalServerError, "Could not load profile.")
}

func TestGetProfile_FallbackName(t *testing.T) {
	profiles := stubProfiles{get: func(uid string) (*domain.Profile, error) {
		return &domain.Profile{ID: uid}, nil
	}}
	r := newEngine(New(Deps{Profiles: profiles}, Options{}))
	w := do(r, http.MethodGet, testBase+"/get-profile", "", "", bearer("tok-u1"))
	mustContain(t, w, http.StatusOK, "Hello, User!")
}

func TestUpdateProfile(t *testing.T) {
	profiles := stubProfiles{update: func(uid, name string) (string, error) {
		switch strings.TrimSpace(name) {
		case "":
			return "", services.ErrUsernameRequired
		case "taken":
			return "", services.ErrUsernameTaken
		case "<bad>":
			return "", services.ErrUsernameInvalid
		case "down":
			return "", errBoom
		}
		return name, nil
	}}
	r := newEngine(New(Deps{Profiles: profiles}, Options{}))
	post := func(body string, auth bool) *httptest.ResponseRecorder {
		if auth {
			return do(r, http.MethodPost, testBase+"/update-profile", ctJSON, body, bearer("tok-u1"))
		}
		return do(r, http.MethodPost, testBase+"/update-profile", ctJSON, body)
	}

	w := post(`{"username":"ada"}`, true)
	mustContain(t, w, http.StatusOK, `id="profile-update-error"`, "alert-success", "Profile updated successfully.")
	if w.Header().Get("HX-Trigger") != "profileUpdated" {
		t.Fatalf("HX-Trigger=%q", w.Header().Get("HX-Trigger"))
	}

	cases := []struct {
		body   string
		auth   bool
		status int
		msg    string
	}{
		{`{"username":"ada"}`, false, http.StatusUnauthorized, "Authorization error."},
		{`{"username":`, true, http.StatusBadRequest, "Invalid request data."},
		{`{}`, true, http.StatusBadRequest, "Username is required."},
		{`{"username":"  "}`, true, http.StatusBadRequest, "Username is required."},
		{`{"username":"<bad>"}`, true, http.StatusBadRequest, "Username may contain"},
		{`{"username":"taken"}`, true, http.StatusConflict, "This username is already taken."},
		{`{"username":"down"}`, true, http.StatusInternalServerError, "Could not update profile."},
	}
	for _, tc := range cases {
		w := post(tc.body, tc.auth)
		mustContain(t, w, tc.status, `id="profile-update-error"`, tc.msg)
		if w.Header().Get("HX-Trigger") != "" {
			t.Fatalf("%s: HX-Trigger on failure", tc.body)
		}
	}
}

func records(n, from int) []domain.HistoryRecord {
	out := make([]domain.HistoryRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.HistoryRecord{ID: "h" + string(rune('a'+from+i)), Prompt: "p & q"})
	}
	return out
}

func TestListHistory(t *testing.T) {
	var gotLimit, gotOffset int
	hist := stubHistory{list: func(uid string, limit, offset int) ([]domain.HistoryRecord, int, int, error) {
		gotLimit, gotOffset = limit, offset
		if uid == "u2" {
			return nil, 0, 0, errBoom
		}
		if limit > services.MaxHistoryPage {
			limit = services.MaxHistoryPage
		}
		if offset >= 3 {
			return records(1, offset), limit, offset, nil
		}
		return records(limit, offset), limit, offset, nil
	}}
	r := newEngine(New(Deps{History: hist}, Options{APIBasePath: testBase}))

	w := do(r, http.MethodGet, testBase+"/history-items?limit=3", "", "", bearer("tok-u1"))
	mustContain(t, w, http.StatusOK,
		`src="/functions/v1/mms-image?id=ha"`,
		"p &amp; q",
		`hx-get="/functions/v1/history-items?limit=3&amp;offset=3"`)
	if gotLimit != 3 || gotOffset != 0 {
		t.Fatalf("limit=%d offset=%d", gotLimit, gotOffset)
	}

	// last page: fewer than limit, no load-more
	w = do(r, http.MethodGet, testBase+"/history-items?limit=3&offset=3", "", "", bearer("tok-u1"))
	mustContain(t, w, http.StatusOK, "id=hd")
	if strings.Contains(w.Body.String(), "load-more-container") {
		t.Fatal("load more on last page")
	}

	// defaults
	_ = do(r, http.MethodGet, testBase+"/history-items?limit=abc", "", "", bearer("tok-u1"))
	if gotLimit != services.DefaultHistoryPage || gotOffset != 0 {
		t.Fatalf("defaults limit=%d offset=%d", gotLimit, gotOffset)
	}

	w = do(r, http.MethodGet, testBase+"/history-items", "", "")
	if w.Code != http.StatusUnauthorized || w.Body.Len() != 0 {
		t.Fatalf("anonymous status=%d body=%q", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, testBase+"/history-items", "", "", bearer("tok-u2"))
	if w.Code != http.StatusInternalServerError || w.Body.Len() != 0 {
		t.Fatalf("error status=%d body=%q", w.Code, w.Body.String())
	}
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestGetImage(t *testing.T) {
	hist := stubHistory{image: func(uid, id string) (*domain.HistoryRecord, error) {
		switch {
		case uid == "u1" && id == "h1":
			return &domain.HistoryRecord{ID: id, UserID: uid, ImageData: pngMagic}, nil
		case id == "boom":
			return nil, errBoom
		}
		return nil, services.ErrImageNotFound
	}}
	r := newEngine(New(Deps{History: hist}, Options{}))

	w := do(r, http.MethodGet, testBase+"/mms-image?id=h1", "", "", bearer("tok-u1"))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" || w.Body.Len() != len(pngMagic) {
		t.Fatalf("status=%d ct=%q len=%d", w.Code, w.Header().Get("Content-Type"), w.Body.Len())
	}

	w = do(r, http.MethodGet, testBase+"/mms-image", "", "", bearer("tok-u1"))
	if w.Code != http.StatusBadRequest || w.Body.String() != "Image ID is required" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, testBase+"/mms-image?id=h1", "", "", bearer("tok-u2"))
	if w.Code != http.StatusNotFound || w.Body.String() != "Image not found or access denied" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, testBase+"/mms-image?id=h1", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status=%d", w.Code)
	}

	w = do(r, http.MethodGet, testBase+"/mms-image?id=boom", "", "", bearer("tok-u1"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetMedia(t *testing.T) {
	store := mapMedia{
		"m1": {Data: pngMagic, ContentType: "image/png"},
		"m2": {Data: pngMagic},
	}
	r := newEngine(New(Deps{Media: store}, Options{}))

	w := do(r, http.MethodGet, "/media/m1", "", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status=%d ct=%q", w.Code, w.Header().Get("Content-Type"))
	}
	w = do(r, http.MethodGet, "/media/m2", "", "")
	if w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("sniffed ct=%q", w.Header().Get("Content-Type"))
	}
	w = do(r, http.MethodGet, "/media/nope", "", "")
	mustContain(t, w, http.StatusNotFound, `"code":"not_found"`)

	r = newEngine(New(Deps{}, Options{}))
	w = do(r, http.MethodGet, "/media/m1", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("no store status=%d", w.Code)
	}
}
