package services

import (
	"context"
	"time"

	"github.com/tbourn/go-mms-backend/internal/domain"
)

// IdentityResolver maps a raw caller credential to a user id. It returns
// ErrUnauthorized when the credential is missing or invalid.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// HistoryLog is the MMS workflow's view of the history table.
type HistoryLog interface {
	// CountSince counts the user's records created in [from, to).
	CountSince(ctx context.Context, userID string, from, to time.Time) (int64, error)
	// Append inserts rec and fills its ID.
	Append(ctx context.Context, rec *domain.HistoryRecord) error
}

// GlobalQuota guards the shared per-day message counter.
type GlobalQuota interface {
	// Reserve atomically takes one slot for day if fewer than limit are used.
	Reserve(ctx context.Context, day string, limit int) (bool, error)
	// Release returns a slot taken by Reserve.
	Release(ctx context.Context, day string) error
}

// ProfileLookup resolves the phone number messages are delivered to.
// It returns ErrPhoneMissing when the account has none.
type ProfileLookup interface {
	PhoneNumber(ctx context.Context, userID string) (string, error)
}

// ImageGenerator turns a prompt into an image.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (domain.GeneratedImage, error)
}

// DeliveryGateway sends a generated image to a phone.
type DeliveryGateway interface {
	SendMMS(ctx context.Context, to string, img domain.GeneratedImage, caption string) error
}

// SMSSender delivers verification codes.
type SMSSender interface {
	SendText(ctx context.Context, to, body string) error
}

// OTPStore keeps hashed one-time codes. Check consumes a matching code and
// counts a mismatch against the code's attempt budget.
type OTPStore interface {
	Put(ctx context.Context, phone string, purpose domain.OTPPurpose, codeHash string, ttl time.Duration) error
	Check(ctx context.Context, phone string, purpose domain.OTPPurpose, codeHash string) (bool, error)
}
