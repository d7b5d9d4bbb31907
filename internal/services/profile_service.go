package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/repo"
)

// UsernameMaxLen caps usernames by rune count.
const UsernameMaxLen = 32

var usernameRE = regexp.MustCompile(`^[\p{L}\p{N}_.\- ]+$`)

// ProfileService reads and edits the caller's own profile. It also serves
// as the MMS workflow's ProfileLookup.
type ProfileService struct {
	DB *gorm.DB
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	p, err := repo.GetProfile(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// UpdateUsername validates and stores a new username for userID.
func (s *ProfileService) UpdateUsername(ctx context.Context, userID, username string) (string, error) {
	tr := otel.Tracer("services/ProfileService")
	ctx, span := tr.Start(ctx, "UpdateUsername", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	username = normalizeUsername(username)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) > UsernameMaxLen || !usernameRE.MatchString(username) {
		return "", ErrUsernameInvalid
	}

	switch err := repo.UpdateUsername(ctx, s.DB, userID, username); {
	case errors.Is(err, repo.ErrDuplicate):
		return "", ErrUsernameTaken
	case errors.Is(err, repo.ErrNotFound):
		return "", ErrProfileNotFound
	case err != nil:
		return "", err
	}
	return username, nil
}

// PhoneNumber returns the delivery number for userID or ErrPhoneMissing.
func (s *ProfileService) PhoneNumber(ctx context.Context, userID string) (string, error) {
	p, err := repo.GetProfile(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrPhoneMissing
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(p.PhoneNumber) == "" {
		return "", ErrPhoneMissing
	}
	return p.PhoneNumber, nil
}

// normalizeUsername trims, composes to NFC and collapses inner whitespace.
func normalizeUsername(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
