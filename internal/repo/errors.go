package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested row does not exist (or is not
	// visible to the caller).
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("duplicate")
)

// isUniqueViolation recognizes unique-key failures across drivers. Postgres
// errors are translated by gorm; glebarez/sqlite often returns plain text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
