package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/services"
)

func TestRegister(t *testing.T) {
	var got services.RegisterInput
	auth := stubAuth{register: func(in services.RegisterInput) (string, error) {
		got = in
		switch in.Email {
		case "taken@example.com":
			return "", services.ErrEmailTaken
		case "bad":
			return "", &services.ValidationError{Field: "email", Message: "Please enter a valid email address."}
		case "down@example.com":
			return "", errBoom
		}
		return "+48600100200", nil
	}}
	r := newEngine(New(Deps{Auth: auth}, Options{}))

	t.Run("form success", func(t *testing.T) {
		body := "email=ada%40example.com&password=secret123&password_confirm=secret123&phone_number=%2B48+600+100+200&terms=on"
		w := do(r, http.MethodPost, testBase+"/register", ctForm, body)
		if w.Code != http.StatusOK || w.Body.Len() != 0 {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		if loc := w.Header().Get("HX-Redirect"); loc != "/verify-phone?phone=%2B48600100200" {
			t.Fatalf("HX-Redirect=%q", loc)
		}
		if !got.TermsAccepted || got.Phone != "+48 600 100 200" || got.PasswordConfirm != "secret123" {
			t.Fatalf("input=%+v", got)
		}
	})

	t.Run("json terms bool", func(t *testing.T) {
		w := do(r, http.MethodPost, testBase+"/register", ctJSON,
			`{"email":"ada@example.com","password":"p","password_confirm":"p","phone_number":"1","terms":true}`)
		if w.Code != http.StatusOK || !got.TermsAccepted {
			t.Fatalf("status=%d terms=%v", w.Code, got.TermsAccepted)
		}
	})

	t.Run("terms unchecked", func(t *testing.T) {
		_ = do(r, http.MethodPost, testBase+"/register", ctForm, "email=ada%40example.com")
		if got.TermsAccepted {
			t.Fatal("terms should default to false")
		}
	})

	t.Run("validation", func(t *testing.T) {
		w := do(r, http.MethodPost, testBase+"/register", ctForm, "email=bad")
		mustContain(t, w, http.StatusBadRequest, "alert-warning", "Please enter a valid email address.")
	})

	t.Run("duplicate", func(t *testing.T) {
		w := do(r, http.MethodPost, testBase+"/register", ctForm, "email=taken%40example.com")
		mustContain(t, w, http.StatusConflict, "This email is already registered.")
	})

	t.Run("internal", func(t *testing.T) {
		w := do(r, http.MethodPost, testBase+"/register", ctForm, "email=down%40example.com")
		mustContain(t, w, http.StatusInternalServerError, "An unexpected server error occurred.")
		if strings.Contains(w.Body.String(), "boom") {
			t.Fatal("internal error leaked")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		w := do(r, http.MethodPost, testBase+"/register", ctJSON, `{"email":`)
		mustContain(t, w, http.StatusBadRequest, "Invalid request data.")
	})
}

func TestPasswordLogin(t *testing.T) {
	auth := stubAuth{login: func(email, password string) (string, error) {
		switch {
		case email == "nophone@example.com":
			return "", services.ErrPhoneMissing
		case password != "right":
			return "", services.ErrInvalidCredentials
		}
		return "+48600100200", nil
	}}
	r := newEngine(New(Deps{Auth: auth}, Options{}))

	w := do(r, http.MethodPost, testBase+"/auth-password", ctForm, "email=ada%40example.com&password=right")
	if w.Code != http.StatusOK || w.Header().Get("HX-Redirect") != "/verify-2fa?phone=%2B48600100200" {
		t.Fatalf("status=%d redirect=%q", w.Code, w.Header().Get("HX-Redirect"))
	}

	w = do(r, http.MethodPost, testBase+"/auth-password", ctForm, "email=ada%40example.com&password=wrong")
	mustContain(t, w, http.StatusUnauthorized, "Invalid login or password.")

	w = do(r, http.MethodPost, testBase+"/auth-password", ctForm, "email=&password=")
	mustContain(t, w, http.StatusUnauthorized, "Invalid login or password.")

	w = do(r, http.MethodPost, testBase+"/auth-password", ctForm, "email=nophone%40example.com&password=right")
	mustContain(t, w, http.StatusInternalServerError, "Could not find a phone number for this account.")
}

func TestVerifyOTP(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	var gotPurpose domain.OTPPurpose
	auth := stubAuth{verify: func(phone, code string, p domain.OTPPurpose) (services.Session, error) {
		gotPurpose = p
		if code != "123456" {
			return services.Session{}, services.ErrInvalidOTP
		}
		if phone == "+1000000000" {
			return services.Session{}, errBoom
		}
		return services.Session{UserID: "u1", Token: "jwt-token", ExpiresAt: exp}, nil
	}}
	r := newEngine(New(Deps{Auth: auth}, Options{SessionCookie: "sid", SecureCookie: true}))

	t.Run("success sets session", func(t *testing.T) {
		w := do(r, http.MethodPost, testBase+"/auth-verify", ctForm, "token=123456&phone=%2B48600100200&type=signup")
		if w.Code != http.StatusOK || w.Header().Get("HX-Redirect") != "/app" {
			t.Fatalf("status=%d redirect=%q", w.Code, w.Header().Get("HX-Redirect"))
		}
		if gotPurpose != domain.OTPSignup {
			t.Fatalf("purpose=%q", gotPurpose)
		}
		if w.Header().Get(HeaderSessionToken) != "jwt-token" {
			t.Fatalf("token header=%q", w.Header().Get(HeaderSessionToken))
		}
		ck := w.Header().Get("Set-Cookie")
		for _, p := range []string{"sid=jwt-token", "HttpOnly", "Secure", "SameSite=Lax", "Path=/"} {
			if !strings.Contains(ck, p) {
				t.Fatalf("cookie %q missing %q", ck, p)
			}
		}
	})

	for _, body := range []string{
		"phone=%2B48600100200&type=login",
		"token=123456&type=login",
		"token=123456&phone=%2B48600100200",
		"token=123456&phone=%2B48600100200&type=reset",
	} {
		w := do(r, http.MethodPost, testBase+"/auth-verify", ctForm, body)
		mustContain(t, w, http.StatusBadRequest, "Missing verification data.")
	}

	w := do(r, http.MethodPost, testBase+"/auth-verify", ctForm, "token=000000&phone=%2B48600100200&type=login")
	mustContain(t, w, http.StatusUnauthorized, "The code is invalid or has expired.")
	if w.Header().Get("Set-Cookie") != "" {
		t.Fatal("cookie set on failure")
	}

	w = do(r, http.MethodPost, testBase+"/auth-verify", ctForm, "token=123456&phone=%2B1000000000&type=login")
	mustContain(t, w, http.StatusInternalServerError, "An unexpected server error occurred.")
}
