package repository

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate is returned when an insert hits a unique or primary key.
	ErrDuplicate = errors.New("duplicate record")
	// ErrNoCredits is returned when a card spend finds a zero balance.
	ErrNoCredits = errors.New("no contact cards left")
)

// isDuplicate reports whether err is a uniqueness violation.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	// Check for GORM's duplicate key error (needs TranslateError)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// Fallback for connections opened without TranslateError
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql 1062
		strings.Contains(msg, "duplicate key value") // postgres 23505
}

// IsNotFound reports whether err is gorm's record-not-found, wrapped or not.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
