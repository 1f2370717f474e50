package service

import (
	"errors"
	"strings"

	"letter-log-system/internal/apperr"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// isDuplicateKey recognises a unique-constraint violation from any of the
// supported drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "Duplicate entry")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// passThrough returns err unchanged when it already belongs to the taxonomy,
// otherwise logs the cause and hides it behind a storage error.
func passThrough(log zerolog.Logger, op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("storage failure")
	return apperr.Storage(err)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
