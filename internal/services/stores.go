package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
	"github.com/tbourn/go-mms-backend/internal/repo"
)

// GlobalCounter is the database-backed GlobalQuota.
type GlobalCounter struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (g *GlobalCounter) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Reserve implements GlobalQuota.
func (g *GlobalCounter) Reserve(ctx context.Context, day string, limit int) (bool, error) {
	return repo.ReserveGlobalSlot(ctx, g.DB, day, limit, g.now())
}

// Release implements GlobalQuota.
func (g *GlobalCounter) Release(ctx context.Context, day string) error {
	return repo.ReleaseGlobalSlot(ctx, g.DB, day, g.now())
}

// DBOTPStore keeps one-time codes in the otp_challenges table. It is used
// when no Redis is configured.
type DBOTPStore struct {
	DB          *gorm.DB
	MaxAttempts int
	Now         func() time.Time
}

func (s *DBOTPStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Put implements OTPStore.
func (s *DBOTPStore) Put(ctx context.Context, phone string, purpose domain.OTPPurpose, codeHash string, ttl time.Duration) error {
	now := s.now()
	return repo.PutOTP(ctx, s.DB, phone, purpose, codeHash, now.Add(ttl), now)
}

// Check implements OTPStore.
func (s *DBOTPStore) Check(ctx context.Context, phone string, purpose domain.OTPPurpose, codeHash string) (bool, error) {
	max := s.MaxAttempts
	if max <= 0 {
		max = 5
	}
	return repo.CheckOTP(ctx, s.DB, phone, purpose, codeHash, max, s.now())
}
