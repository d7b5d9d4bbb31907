package repo

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-mms-backend/internal/domain"
)

// PutOTP stores codeHash as the current challenge for (phone, purpose),
// replacing any previous one and resetting the attempt counter.
func PutOTP(ctx context.Context, db *gorm.DB, phone string, purpose domain.OTPPurpose, codeHash string, expiresAt, now time.Time) error {
	ch := &domain.OTPChallenge{
		ID:        uuid.NewString(),
		Phone:     phone,
		Purpose:   purpose,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone"}, {Name: "purpose"}},
		DoUpdates: clause.Assignments(map[string]any{
			"code_hash":   codeHash,
			"attempts":    0,
			"expires_at":  expiresAt.UTC(),
			"consumed_at": nil,
			"updated_at":  now.UTC(),
		}),
	}).Create(ch).Error
}

// CheckOTP verifies codeHash against the current challenge. A match consumes
// the challenge; a mismatch burns one attempt. It returns false for unknown,
// expired, consumed or exhausted challenges.
func CheckOTP(ctx context.Context, db *gorm.DB, phone string, purpose domain.OTPPurpose, codeHash string, maxAttempts int, now time.Time) (bool, error) {
	var ok bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ch domain.OTPChallenge
		err := tx.Where("phone = ? AND purpose = ?", phone, purpose).First(&ch).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if ch.ConsumedAt != nil || !now.Before(ch.ExpiresAt) || ch.Attempts >= maxAttempts {
			return nil
		}

		if subtle.ConstantTimeCompare([]byte(ch.CodeHash), []byte(codeHash)) != 1 {
			return tx.Model(&domain.OTPChallenge{}).
				Where("id = ?", ch.ID).
				Updates(map[string]any{"attempts": gorm.Expr("attempts + 1"), "updated_at": now.UTC()}).Error
		}

		res := tx.Model(&domain.OTPChallenge{}).
			Where("id = ? AND consumed_at IS NULL", ch.ID).
			Updates(map[string]any{"consumed_at": now.UTC(), "updated_at": now.UTC()})
		if res.Error != nil {
			return res.Error
		}
		ok = res.RowsAffected == 1
		return nil
	})
	return ok, err
}

// PurgeOTP deletes challenges that expired or were consumed before cutoff.
func PurgeOTP(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ? OR consumed_at <= ?", cutoff.UTC(), cutoff.UTC()).
		Delete(&domain.OTPChallenge{})
	return res.RowsAffected, res.Error
}
