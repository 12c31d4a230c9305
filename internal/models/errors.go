package models

import (
	"errors"
	"strings"
)

// Sentinel errors shared by the store, the service and the API
var (
	// ErrDuplicateChallanNo is returned when the challan number already exists,
	// soft-deleted rows included.
	ErrDuplicateChallanNo = errors.New("Challan number already exists")

	// ErrNotFound is returned when a challan is missing or soft-deleted.
	ErrNotFound = errors.New("PDF not found")
)

// ValidationError reports request data rejected before any side effect
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with a custom message
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// MissingFieldsError reports absent required fields
func MissingFieldsError(fields []string) *ValidationError {
	return &ValidationError{
		Message: "Missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

// StorageError wraps a database failure. Its message is the driver's own.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStorage reports whether err is a *StorageError
func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}
