// Package domain defines the persistence models for profiles, MMS history,
// the global daily counter and one-time passwords. These types are mapped
// with GORM and form the core data layer of the MMS backend.
package domain

import "time"

// Profile is a registered account. Email is the login identifier; the phone
// number is the MMS destination and the second authentication factor.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: case-folded login email (unique).
//   - Username: optional display name (unique when set).
//   - PhoneNumber: normalized E.164-ish number ("+48123456789").
//   - PhoneConfirmedAt: set once the signup code was verified.
//   - PasswordHash: bcrypt hash, never serialized.
type Profile struct {
	ID               string     `json:"id"           gorm:"type:char(36);primaryKey"`
	Email            string     `json:"email"        gorm:"type:varchar(320);not null;uniqueIndex:ux_profiles_email"`
	Username         *string    `json:"username"     gorm:"type:varchar(64);uniqueIndex:ux_profiles_username"`
	PhoneNumber      string     `json:"phone_number" gorm:"type:varchar(32);not null;default:''"`
	PhoneConfirmedAt *time.Time `json:"phone_confirmed_at,omitempty"`
	PasswordHash     string     `json:"-"            gorm:"type:varchar(100);not null"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string { return "profiles" }

// DisplayName returns the username, or fallback when none is set.
func (p Profile) DisplayName(fallback string) string {
	if p.Username == nil || *p.Username == "" {
		return fallback
	}
	return *p.Username
}

// HistoryStatus is the terminal state recorded for an MMS attempt.
type HistoryStatus string

const (
	HistorySuccess          HistoryStatus = "success"
	HistoryGenerationFailed HistoryStatus = "generation_failed"
	HistorySendFailed       HistoryStatus = "send_failed"
)

// Valid reports whether s is one of the known statuses.
func (s HistoryStatus) Valid() bool {
	switch s {
	case HistorySuccess, HistoryGenerationFailed, HistorySendFailed:
		return true
	}
	return false
}

// HistoryRecord is an immutable log entry for one MMS attempt that got past
// validation and quota checks. ImageData is empty for generation failures.
type HistoryRecord struct {
	ID        string        `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string        `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_history_user_created,priority:1"`
	Prompt    string        `json:"prompt"     gorm:"type:text;not null"`
	Status    HistoryStatus `json:"status"     gorm:"type:varchar(32);not null;check:status IN ('success','generation_failed','send_failed')"`
	ImageData []byte        `json:"-"`
	ModelInfo *string       `json:"model_info,omitempty" gorm:"type:varchar(128)"`
	CreatedAt time.Time     `json:"created_at" gorm:"not null;index:idx_history_user_created,priority:2"`
}

// TableName returns the database table name for HistoryRecord.
func (HistoryRecord) TableName() string { return "mms_history" }

// HasImage reports whether the record carries image bytes.
func (r HistoryRecord) HasImage() bool { return len(r.ImageData) > 0 }

// DailyGlobalStat counts MMS messages handed to the gateway on a UTC day.
type DailyGlobalStat struct {
	Day          string    `json:"day"            gorm:"type:varchar(10);primaryKey"`
	MMSSentCount int       `json:"mms_sent_count" gorm:"column:mms_sent_count;not null;default:0"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for DailyGlobalStat.
func (DailyGlobalStat) TableName() string { return "daily_global_stats" }

// OTPPurpose tells which flow a one-time password belongs to.
type OTPPurpose string

const (
	OTPSignup OTPPurpose = "signup"
	OTPLogin  OTPPurpose = "login"
)

// ParseOTPPurpose maps the wire value to an OTPPurpose.
func ParseOTPPurpose(s string) (OTPPurpose, bool) {
	switch OTPPurpose(s) {
	case OTPSignup, OTPLogin:
		return OTPPurpose(s), true
	}
	return "", false
}

// OTPChallenge is the latest code issued for a (phone, purpose) pair. Only the
// SHA-256 of the code is stored; issuing a new code replaces the old one.
type OTPChallenge struct {
	ID         string     `gorm:"type:char(36);primaryKey"`
	Phone      string     `gorm:"type:varchar(32);not null;uniqueIndex:ux_otp_phone_purpose,priority:1"`
	Purpose    OTPPurpose `gorm:"type:varchar(16);not null;uniqueIndex:ux_otp_phone_purpose,priority:2"`
	CodeHash   string     `gorm:"type:char(64);not null"`
	Attempts   int        `gorm:"not null;default:0"`
	ExpiresAt  time.Time  `gorm:"not null;index"`
	ConsumedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the database table name for OTPChallenge.
func (OTPChallenge) TableName() string { return "otp_challenges" }
