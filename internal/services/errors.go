// Package services defines the business logic for accounts, sessions,
// profiles, MMS history and the MMS request workflow. This file centralizes
// common service-level error values so that they can be consistently returned
// by service methods and checked by callers.
//
// Translation into user-facing fragments and HTTP status codes is performed
// at the handler layer.
package services

import "errors"

// Identity and session errors.
var (
	// ErrUnauthorized indicates the credential is missing, malformed,
	// expired, or does not resolve to an account.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned when email and password do not match.
	ErrInvalidCredentials = errors.New("invalid login or password")

	// ErrInvalidOTP is returned for unknown, expired, used or exhausted codes.
	ErrInvalidOTP = errors.New("invalid or expired code")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// Profile errors.
var (
	// ErrProfileNotFound indicates the authenticated account has no profile row.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrPhoneMissing is returned when an account has no phone number on file.
	ErrPhoneMissing = errors.New("phone number missing")

	// ErrUsernameRequired is returned when an update carries no username.
	ErrUsernameRequired = errors.New("username is required")

	// ErrUsernameInvalid is returned for usernames outside the allowed shape.
	ErrUsernameInvalid = errors.New("username is invalid")

	// ErrUsernameTaken is returned when another account owns the username.
	ErrUsernameTaken = errors.New("username already taken")
)

// History errors.
var (
	// ErrImageNotFound covers unknown ids, foreign records and empty images.
	ErrImageNotFound = errors.New("image not found")
)

// ValidationError reports a rejected form field with a message that is safe
// to show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }
