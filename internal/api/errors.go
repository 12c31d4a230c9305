package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/challan/internal/models"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrUnsupportedMediaType = &Error{Message: "Content-Type must be application/json", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrInvalidJSON          = &Error{Message: "Request body must be a JSON object", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrInvalidID            = &Error{Message: "Invalid challan id", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
)

// statusFor maps an error kind to its HTTP status and code
func statusFor(err error) (int, string) {
	var apiError *Error
	switch {
	case errors.As(err, &apiError):
		return apiError.StatusCode, apiError.Code
	case models.IsValidation(err):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, models.ErrDuplicateChallanNo):
		return http.StatusBadRequest, "DUPLICATE_CHALLAN_NO"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case models.IsStorage(err):
		return http.StatusInternalServerError, "STORAGE_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// WriteError aborts the request with a JSON error body. Messages are passed
// through as-is, storage failures included.
func WriteError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
