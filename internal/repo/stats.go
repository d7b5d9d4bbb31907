// The global daily MMS counter. Reservation and release are single
// statements so concurrent requests cannot overshoot the limit.

package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
)

// ReserveGlobalSlot increments the counter for day if it is below limit,
// creating the row on first use. It reports false when the limit is reached.
//
// The upsert is valid on both SQLite (>= 3.24) and PostgreSQL.
func ReserveGlobalSlot(ctx context.Context, db *gorm.DB, day string, limit int, now time.Time) (bool, error) {
	if limit <= 0 {
		return false, nil
	}
	res := db.WithContext(ctx).Exec(`
INSERT INTO daily_global_stats (day, mms_sent_count, updated_at)
VALUES (?, 1, ?)
ON CONFLICT (day) DO UPDATE
SET mms_sent_count = daily_global_stats.mms_sent_count + 1,
    updated_at = excluded.updated_at
WHERE daily_global_stats.mms_sent_count < ?`, day, now.UTC(), limit)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseGlobalSlot gives back one reserved slot. It never drops below zero.
func ReleaseGlobalSlot(ctx context.Context, db *gorm.DB, day string, now time.Time) error {
	return db.WithContext(ctx).Exec(`
UPDATE daily_global_stats
SET mms_sent_count = mms_sent_count - 1, updated_at = ?
WHERE day = ? AND mms_sent_count > 0`, now.UTC(), day).Error
}

// GlobalSentCount returns the counter for day, or 0 when no row exists.
func GlobalSentCount(ctx context.Context, db *gorm.DB, day string) (int, error) {
	var st domain.DailyGlobalStat
	err := db.WithContext(ctx).Where("day = ?", day).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return st.MMSSentCount, nil
}
