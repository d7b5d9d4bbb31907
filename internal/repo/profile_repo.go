package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
)

// CreateProfile inserts a profile. A taken email yields ErrDuplicate.
func CreateProfile(ctx context.Context, db *gorm.DB, email, phone, passwordHash string) (*domain.Profile, error) {
	now := time.Now().UTC()
	p := &domain.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return p, nil
}

// GetProfile fetches a profile by ID.
func GetProfile(ctx context.Context, db *gorm.DB, id string) (*domain.Profile, error) {
	return firstProfile(ctx, db, "id = ?", id)
}

// GetProfileByEmail fetches a profile by its (already normalized) email.
func GetProfileByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Profile, error) {
	return firstProfile(ctx, db, "email = ?", email)
}

// GetProfileByPhone fetches the most recently created profile using phone.
func GetProfileByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).Where("phone_number = ?", phone).Order("created_at DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func firstProfile(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Profile, error) {
	var p domain.Profile
	err := db.WithContext(ctx).Where(where, arg).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateUsername sets the username. ErrDuplicate means another profile owns
// it; ErrNotFound means the profile does not exist.
func UpdateUsername(ctx context.Context, db *gorm.DB, id, username string) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{"username": username, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmPhone stamps phone_confirmed_at once; later calls keep the first value.
func ConfirmPhone(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ? AND phone_confirmed_at IS NULL", id).
		Updates(map[string]any{"phone_confirmed_at": at.UTC(), "updated_at": at.UTC()})
	return res.Error
}
