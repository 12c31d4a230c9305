package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"example.com/backstage/services/challan/internal/models"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto the model error kinds
func translateError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case isUniqueViolation(err):
		return models.ErrDuplicateChallanNo
	default:
		return &models.StorageError{Op: op, Err: err}
	}
}

// isUniqueViolation checks if an error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// SQLite reports constraint failures as plain text
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
