// Package services – AuthService
//
// AuthService owns registration and the two-step login: a password check
// followed by a one-time code delivered by SMS. Codes are stored only as
// hashes, are single use and expire. A verified code yields a signed session
// token.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/repo"
)

var (
	emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRE = regexp.MustCompile(`^\+?[0-9\s\-]{9,15}$`)
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// RegisterInput is the registration form.
type RegisterInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	Phone           string
	TermsAccepted   bool
}

// Session is a signed credential for an account.
type Session struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// AuthService handles accounts and login.
type AuthService struct {
	DB     *gorm.DB
	OTP    OTPStore
	SMS    SMSSender
	Tokens *TokenIssuer

	OTPTTL     time.Duration
	OTPLength  int
	BcryptCost int
}

// NewAuthService wires an AuthService with 5 minute, 6 digit codes.
func NewAuthService(db *gorm.DB, otp OTPStore, sms SMSSender, tokens *TokenIssuer) *AuthService {
	return &AuthService{
		DB:         db,
		OTP:        otp,
		SMS:        sms,
		Tokens:     tokens,
		OTPTTL:     5 * time.Minute,
		OTPLength:  6,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Register validates the form, creates the account and sends a signup code.
// It returns the normalized phone number the code was sent to.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	email := NormalizeEmail(in.Email)
	switch {
	case !emailRE.MatchString(email):
		return "", &ValidationError{Field: "email", Message: "Please enter a valid email address."}
	case utf8.RuneCountInString(in.Password) < MinPasswordLen:
		return "", &ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLen)}
	case in.Password != in.PasswordConfirm:
		return "", &ValidationError{Field: "password_confirm", Message: "Passwords do not match."}
	case !in.TermsAccepted:
		return "", &ValidationError{Field: "terms", Message: "You must accept the terms of service."}
	}
	phone, ok := NormalizePhone(in.Phone)
	if !ok {
		return "", &ValidationError{Field: "phone_number", Message: "Please enter a valid phone number."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	p, err := repo.CreateProfile(ctx, s.DB, email, phone, string(hash))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	span.SetAttributes(attribute.String("user.id", p.ID))

	if err := s.sendCode(ctx, phone, domain.OTPSignup); err != nil {
		return "", err
	}
	return phone, nil
}

// PasswordLogin checks email and password and sends a login code to the
// account's phone, which it returns.
func (s *AuthService) PasswordLogin(ctx context.Context, email, password string) (string, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "PasswordLogin")
	defer span.End()

	p, err := repo.GetProfileByEmail(ctx, s.DB, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// keep timing close to the known-account path
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	span.SetAttributes(attribute.String("user.id", p.ID))
	if p.PhoneNumber == "" {
		return "", ErrPhoneMissing
	}
	if err := s.sendCode(ctx, p.PhoneNumber, domain.OTPLogin); err != nil {
		return "", err
	}
	return p.PhoneNumber, nil
}

// VerifyOTP consumes a code for phone and purpose and opens a session. A
// signup code also marks the phone as confirmed.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string, purpose domain.OTPPurpose) (Session, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "VerifyOTP", trace.WithAttributes(attribute.String("otp.purpose", string(purpose))))
	defer span.End()

	phone, ok := NormalizePhone(phone)
	code = strings.TrimSpace(code)
	if !ok || code == "" {
		return Session{}, ErrInvalidOTP
	}
	valid, err := s.OTP.Check(ctx, phone, purpose, HashOTP(phone, code))
	if err != nil {
		return Session{}, err
	}
	if !valid {
		return Session{}, ErrInvalidOTP
	}

	p, err := repo.GetProfileByPhone(ctx, s.DB, phone)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Session{}, ErrInvalidOTP
		}
		return Session{}, err
	}
	if purpose == domain.OTPSignup {
		if err := repo.ConfirmPhone(ctx, s.DB, p.ID, time.Now().UTC()); err != nil {
			return Session{}, err
		}
	}

	tok, exp, err := s.Tokens.Issue(p.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: p.ID, Token: tok, ExpiresAt: exp}, nil
}

func (s *AuthService) sendCode(ctx context.Context, phone string, purpose domain.OTPPurpose) error {
	code, err := NewOTPCode(s.OTPLength)
	if err != nil {
		return err
	}
	ttl := s.OTPTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := s.OTP.Put(ctx, phone, purpose, HashOTP(phone, code), ttl); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.SMS.SendText(ctx, phone, "Your verification code is: "+code); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

func (s *AuthService) cost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

// NormalizeEmail trims and case-folds an address.
func NormalizeEmail(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NormalizePhone validates a phone number and strips spaces and dashes.
func NormalizePhone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !phoneRE.MatchString(s) {
		return "", false
	}
	return strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(s), true
}

// NewOTPCode returns n random decimal digits; n outside [4,10] means 6.
func NewOTPCode(n int) (string, error) {
	if n < 4 || n > 10 {
		n = 6
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// HashOTP binds a code to its phone number so stored hashes are not reusable.
func HashOTP(phone, code string) string {
	sum := sha256.Sum256([]byte(phone + ":" + code))
	return hex.EncodeToString(sum[:])
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcrypt.DefaultCost)
	return h
})
