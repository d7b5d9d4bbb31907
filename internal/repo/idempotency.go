package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/domain"
)

// Replays remembers the outcome of MMS submissions per (user, route, key) so
// a retried request can be answered without running the workflow again.
//
// A request first claims its key, which inserts a row without an outcome.
// The unique index on (user_id, scope, key) lets exactly one concurrent
// request win the claim. The winner then completes the row with Put or
// gives it back with Release. Unfinished claims expire after claimTTL so a
// crashed request does not hold a key for the full replay window.
type Replays struct {
	db       *gorm.DB
	ttl      time.Duration
	claimTTL time.Duration
	now      func() time.Time
}

// defaultClaimTTL bounds one MMS workflow run, generation included.
const defaultClaimTTL = 5 * time.Minute

// NewReplays returns a store whose records live for ttl.
func NewReplays(db *gorm.DB, ttl time.Duration) *Replays {
	claim := defaultClaimTTL
	if ttl > 0 && ttl < claim {
		claim = ttl
	}
	return &Replays{db: db, ttl: ttl, claimTTL: claim, now: func() time.Time { return time.Now().UTC() }}
}

// Find returns the live record for the tuple or ErrNotFound. The record may
// be an unfinished claim; see domain.Idempotency.Pending.
func (r *Replays) Find(ctx context.Context, userID, scope, key string) (*domain.Idempotency, error) {
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND expires_at > ?", userID, scope, key, r.now()).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Get reports the stored outcome label for a live key. Unfinished claims are
// not found.
func (r *Replays) Get(ctx context.Context, userID, scope, key string) (string, bool, error) {
	rec, err := r.Find(ctx, userID, scope, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	if rec.Pending() {
		return "", false, nil
	}
	return rec.Outcome, true, nil
}

// Seen is Get without the label, in the shape the idempotency middleware
// expects.
func (r *Replays) Seen(ctx context.Context, userID, scope, key string, _ time.Time) (bool, error) {
	_, found, err := r.Get(ctx, userID, scope, key)
	return found, err
}

// Claim reserves the tuple for one run of the workflow. It reports false
// when a live record, finished or not, already holds the key.
func (r *Replays) Claim(ctx context.Context, userID, scope, key string) (bool, error) {
	now := r.now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteExpired(tx, userID, scope, key, now); err != nil {
			return err
		}
		return tx.Create(&domain.Idempotency{
			ID:        uuid.NewString(),
			UserID:    userID,
			Scope:     scope,
			Key:       key,
			CreatedAt: now,
			ExpiresAt: now.Add(r.claimTTL),
		}).Error
	})
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Put records an outcome, completing the caller's claim when there is one.
// When a concurrent retry stored first, its record stays and Put returns
// nil. An expired record for the tuple is replaced.
func (r *Replays) Put(ctx context.Context, userID, scope, key, outcome string, status int) error {
	now := r.now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteExpired(tx, userID, scope, key, now); err != nil {
			return err
		}
		res := tx.Model(&domain.Idempotency{}).
			Where("user_id = ? AND scope = ? AND key = ? AND outcome = ?", userID, scope, key, "").
			Updates(map[string]any{"outcome": outcome, "status": status, "expires_at": now.Add(r.ttl)})
		if res.Error != nil || res.RowsAffected > 0 {
			return res.Error
		}
		return tx.Create(&domain.Idempotency{
			ID:        uuid.NewString(),
			UserID:    userID,
			Scope:     scope,
			Key:       key,
			Outcome:   outcome,
			Status:    status,
			CreatedAt: now,
			ExpiresAt: now.Add(r.ttl),
		}).Error
	})
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// Release drops an unfinished claim so the key can be used again. Finished
// records are left alone.
func (r *Replays) Release(ctx context.Context, userID, scope, key string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND key = ? AND outcome = ?", userID, scope, key, "").
		Delete(&domain.Idempotency{}).Error
}

func deleteExpired(tx *gorm.DB, userID, scope, key string, now time.Time) error {
	return tx.Where("user_id = ? AND scope = ? AND key = ? AND expires_at <= ?", userID, scope, key, now).
		Delete(&domain.Idempotency{}).Error
}

// Purge deletes expired records and returns how many went.
func (r *Replays) Purge(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", r.now()).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
