// History rows hold the generated image bytes next to the prompt. Listing
// never loads image_data; only the single-image lookup does.

package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
)

// CreateHistory inserts a history record, filling ID and CreatedAt when unset.
func CreateHistory(ctx context.Context, db *gorm.DB, rec *domain.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// CountHistorySince counts a user's records created in [from, to).
func CountHistorySince(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.HistoryRecord{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Count(&n).Error
	return n, err
}

// ListHistoryPage returns a page of a user's records, newest first. Image
// bytes are not loaded.
func ListHistoryPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.HistoryRecord, error) {
	var out []domain.HistoryRecord
	err := db.WithContext(ctx).
		Select("id", "user_id", "prompt", "status", "model_info", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetHistoryImage returns a record owned by userID with its bytes. Records of
// other users are reported as ErrNotFound.
func GetHistoryImage(ctx context.Context, db *gorm.DB, userID, id string) (*domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
