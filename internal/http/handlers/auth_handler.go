// Account HTTP handlers.
//
// This file exposes the registration and two-factor login endpoints:
//   - POST /register       (form or JSON; sends a signup code)
//   - POST /auth-password  (email + password; sends a login code)
//   - POST /auth-verify    (phone + code; opens a session)
//
// Successful steps answer 200 with an HX-Redirect header to the next page.
// Failures render an alert into the notification area.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/http/middleware"
	"github.com/tbourn/go-mms-backend/internal/http/views"
	"github.com/tbourn/go-mms-backend/internal/services"
	"github.com/tbourn/go-mms-backend/internal/sysutil"
)

// HeaderSessionToken carries the session token for non-browser clients.
const HeaderSessionToken = "X-Session-Token"

//
// DTOs
//

// checkbox accepts HTML checkbox values ("on") in forms and bools or
// strings in JSON.
type checkbox bool

// UnmarshalParam implements gin's binding.BindUnmarshaler.
func (b *checkbox) UnmarshalParam(s string) error {
	*b = checkbox(sysutil.IsTruthy(s))
	return nil
}

func (b *checkbox) UnmarshalJSON(p []byte) error {
	var v any
	if err := json.Unmarshal(p, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = checkbox(t)
	case string:
		*b = checkbox(sysutil.IsTruthy(t))
	default:
		*b = false
	}
	return nil
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Email           string   `json:"email"            form:"email"            example:"ada@example.com"`
	Password        string   `json:"password"         form:"password"`
	PasswordConfirm string   `json:"password_confirm" form:"password_confirm"`
	PhoneNumber     string   `json:"phone_number"     form:"phone_number"     example:"+48 600 100 200"`
	Terms           checkbox `json:"terms"            form:"terms"            swaggertype:"boolean"`
}

// PasswordLoginRequest is the first login factor.
type PasswordLoginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

// VerifyRequest is the second factor (or the signup confirmation).
type VerifyRequest struct {
	Token string `json:"token" form:"token" example:"123456"`
	Phone string `json:"phone" form:"phone" example:"+48600100200"`
	Type  string `json:"type"  form:"type"  example:"login" enums:"signup,login"`
}

//
// Handlers
//

// Register godoc
// @ID          register
// @Summary     Register an account
// @Description Creates an account and sends a verification code by SMS. On success answers with HX-Redirect to the phone verification page.
// @Tags        Auth
// @Accept      x-www-form-urlencoded,json
// @Produce     html
// @Param       body  body  handlers.RegisterRequest  true  "Registration form"
// @Success     200  {string}  string  "empty body, HX-Redirect header"
// @Failure     400  {string}  string  "warning fragment with the failing field"
// @Failure     409  {string}  string  "error fragment (email taken)"
// @Failure     500  {string}  string  "error fragment"
// @Router      /register [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		notify(c, http.StatusBadRequest, views.LevelWarning, MsgInvalidRequest)
		return
	}

	phone, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Phone:           req.PhoneNumber,
		TermsAccepted:   bool(req.Terms),
	})
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		notify(c, http.StatusBadRequest, views.LevelWarning, ve.Message)
	case errors.Is(err, services.ErrEmailTaken):
		notify(c, http.StatusConflict, views.LevelError, MsgEmailTaken)
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("register failed")
		notify(c, http.StatusInternalServerError, views.LevelError, MsgUnexpected)
	default:
		redirect(c, "/verify-phone?phone="+url.QueryEscape(phone))
	}
}

// PasswordLogin godoc
// @ID          authPassword
// @Summary     First login factor
// @Description Checks email and password and sends a login code to the account's phone.
// @Tags        Auth
// @Accept      x-www-form-urlencoded,json
// @Produce     html
// @Param       body  body  handlers.PasswordLoginRequest  true  "Credentials"
// @Success     200  {string}  string  "empty body, HX-Redirect header"
// @Failure     401  {string}  string  "error fragment"
// @Failure     500  {string}  string  "error fragment"
// @Router      /auth-password [post]
func (h *Handlers) PasswordLogin(c *gin.Context) {
	var req PasswordLoginRequest
	if err := c.ShouldBind(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		notify(c, http.StatusUnauthorized, views.LevelError, MsgInvalidLogin)
		return
	}

	phone, err := h.auth.PasswordLogin(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		notify(c, http.StatusUnauthorized, views.LevelError, MsgInvalidLogin)
	case errors.Is(err, services.ErrPhoneMissing):
		notify(c, http.StatusInternalServerError, views.LevelError, MsgPhoneNotFound)
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("password login failed")
		notify(c, http.StatusInternalServerError, views.LevelError, MsgUnexpected)
	default:
		redirect(c, "/verify-2fa?phone="+url.QueryEscape(phone))
	}
}

// VerifyOTP godoc
// @ID          authVerify
// @Summary     Verify a one-time code
// @Description Consumes a signup or login code. On success sets the session cookie, returns the token in X-Session-Token and redirects to /app.
// @Tags        Auth
// @Accept      x-www-form-urlencoded,json
// @Produce     html
// @Param       body  body  handlers.VerifyRequest  true  "Code"
// @Success     200  {string}  string  "empty body, HX-Redirect header"
// @Failure     400  {string}  string  "error fragment (missing data)"
// @Failure     401  {string}  string  "error fragment (invalid code)"
// @Failure     500  {string}  string  "error fragment"
// @Router      /auth-verify [post]
func (h *Handlers) VerifyOTP(c *gin.Context) {
	var req VerifyRequest
	_ = c.ShouldBind(&req)
	purpose, okPurpose := domain.ParseOTPPurpose(strings.TrimSpace(req.Type))
	if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.Phone) == "" || !okPurpose {
		notify(c, http.StatusBadRequest, views.LevelError, MsgMissingVerify)
		return
	}

	sess, err := h.auth.VerifyOTP(c.Request.Context(), req.Phone, req.Token, purpose)
	switch {
	case errors.Is(err, services.ErrInvalidOTP):
		notify(c, http.StatusUnauthorized, views.LevelError, MsgInvalidCode)
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("otp verification failed")
		notify(c, http.StatusInternalServerError, views.LevelError, MsgUnexpected)
		return
	}

	h.setSession(c, sess)
	redirect(c, "/app")
}

func (h *Handlers) setSession(c *gin.Context, s services.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.SessionCookie, s.Token, maxAge, "/", "", h.opts.SecureCookie, true)
	c.Header(HeaderSessionToken, s.Token)
}
