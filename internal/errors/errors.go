package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInvalidAssignment = "INVALID_ASSIGNMENT"

	// Validation errors
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeValidationError = "VALIDATION_ERROR"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeDependencyFailure  = "DEPENDENCY_FAILURE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// APIError represents a standardized API error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new APIError
func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

// NewAPIErrorWithDetails creates a new APIError with details
func NewAPIErrorWithDetails(code, message string, details interface{}) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, statusCode int, err *APIError) {
	c.JSON(statusCode, err)
}

// Respond maps a service error onto the API envelope. Typed failures keep their
// message; anything else is reported as an internal error without detail.
func Respond(c *gin.Context, err error) {
	var domainErr *Error
	if !As(err, &domainErr) {
		InternalError(c, "")
		return
	}

	var details interface{}
	if domainErr.Op != "" || domainErr.Rule != "" {
		details = gin.H{"operation": domainErr.Op, "rule": domainErr.Rule}
	}

	switch domainErr.Kind {
	case KindNotFound:
		RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, domainErr.Message))
	case KindForbidden:
		RespondWithError(c, http.StatusForbidden, NewAPIErrorWithDetails(ErrCodeForbidden, domainErr.Message, details))
	case KindInvalidAssignment:
		RespondWithError(c, http.StatusUnprocessableEntity, NewAPIErrorWithDetails(ErrCodeInvalidAssignment, domainErr.Message, details))
	case KindValidation:
		RespondWithError(c, http.StatusBadRequest, NewAPIErrorWithDetails(ErrCodeValidationError, domainErr.Message, details))
	case KindConflict:
		Conflict(c, domainErr.Message)
	case KindDependencyFailure:
		RespondWithError(c, http.StatusBadGateway, NewAPIError(ErrCodeDependencyFailure, domainErr.Message))
	default:
		InternalError(c, "")
	}
}

// Helper functions for common error responses

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, NewAPIError(ErrCodeUnauthorized, message))
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	RespondWithError(c, http.StatusForbidden, NewAPIError(ErrCodeForbidden, message))
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, NewAPIError(ErrCodeNotFound, message))
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "Invalid request"
	}
	RespondWithError(c, http.StatusBadRequest, NewAPIError(ErrCodeInvalidInput, message))
}

// Conflict sends a 409 response
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "Resource conflict"
	}
	RespondWithError(c, http.StatusConflict, NewAPIError(ErrCodeConflict, message))
}

// TooManyRequests sends a 429 response
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "Too many requests"
	}
	RespondWithError(c, http.StatusTooManyRequests, NewAPIError(ErrCodeRateLimited, message))
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	RespondWithError(c, http.StatusInternalServerError, NewAPIError(ErrCodeInternalError, message))
}

// ServiceUnavailable sends a 503 response
func ServiceUnavailable(c *gin.Context, message string) {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	RespondWithError(c, http.StatusServiceUnavailable, NewAPIError(ErrCodeServiceUnavailable, message))
}
