package domain

import "time"

// Idempotency is the recorded outcome of a previously processed submission,
// keyed by (user_id, scope, key). A retry with the same key gets the stored
// outcome back instead of re-running side effects such as image generation
// or MMS delivery.
//
// Scope is the route the key was used on, so one key can never replay a
// response from a different endpoint. A row without an Outcome marks a
// request that is still running.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_scope_key,priority:1"`
	Scope     string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_user_scope_key,priority:2"`
	Key       string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_user_scope_key,priority:3"`
	Outcome   string    `gorm:"type:varchar(64);not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// Pending reports whether the record is a claim whose request has not
// finished yet. Claims carry no outcome.
func (i Idempotency) Pending() bool { return i.Outcome == "" }

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
