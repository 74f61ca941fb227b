package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Post service specific errors
var (
	ErrPostNotFound        = errors.New("post not found")
	ErrPostUnauthorized    = errors.New("unauthorized access to post")
	ErrCommentNotFound     = errors.New("comment does not exist")
	ErrCommentUnauthorized = errors.New("unauthorized access to comment")

	// Request and validation errors
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidUUID        = errors.New("invalid UUID format")
	ErrMissingUserContext = errors.New("missing user context")
	ErrValidationFailed   = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("authentication required")

	// Store errors. ErrStoreUnavailable is the only retryable kind.
	ErrStoreUnavailable = errors.New("post store unavailable")
)

// PostError represents a post service error with additional context
type PostError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *PostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PostError) Unwrap() error {
	return e.Cause
}

// NewPostError creates a new PostError
func NewPostError(code, message string, cause error) *PostError {
	return &PostError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	CodePostNotFound     = "POST_NOT_FOUND"
	CodeCommentNotFound  = "COMMENT_NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"

	// Request codes
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidUUID        = "INVALID_UUID"
	CodeMissingUserContext = "MISSING_USER_CONTEXT"
)

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// HandleServiceError handles service errors and returns appropriate HTTP responses
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrValidationFailed):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Code:    CodeValidationFailed,
			Message: "Validation failed",
			Details: validationDetails(err),
		})
	case errors.Is(err, ErrPostNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodePostNotFound,
			Message: "Post not found",
			Details: err.Error(),
		})
	case errors.Is(err, ErrCommentNotFound):
		return c.Status(http.StatusNotFound).JSON(ErrorResponse{
			Code:    CodeCommentNotFound,
			Message: "Comment does not exist",
			Details: err.Error(),
		})
	case errors.Is(err, ErrPostUnauthorized), errors.Is(err, ErrCommentUnauthorized):
		return c.Status(http.StatusForbidden).JSON(ErrorResponse{
			Code:    CodeUnauthorized,
			Message: "User not authorized",
			Details: err.Error(),
		})
	case errors.Is(err, ErrUnauthenticated):
		return HandleUnauthenticatedError(c, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		return c.Status(http.StatusServiceUnavailable).JSON(ErrorResponse{
			Code:    CodeStoreUnavailable,
			Message: "Post store temporarily unavailable",
			Details: err.Error(),
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Code:    CodeInternalError,
			Message: "An unexpected error occurred",
		})
	}
}

func validationDetails(err error) string {
	var postErr *PostError
	if errors.As(err, &postErr) && postErr.Details != "" {
		return postErr.Details
	}
	return err.Error()
}

// HandleValidationError handles validation errors with 400 Bad Request
func HandleValidationError(c *fiber.Ctx, message string, details ...string) error {
	response := ErrorResponse{
		Code:    CodeValidationFailed,
		Message: message,
		Details: message,
	}

	if len(details) > 0 {
		response.Details = details[0]
	}

	return c.Status(http.StatusBadRequest).JSON(response)
}

// HandleUnauthenticatedError answers 401 when no valid identity is attached
func HandleUnauthenticatedError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Code:    CodeUnauthenticated,
		Message: "Authentication required",
		Details: message,
	})
}

// HandleUserContextError handles a missing user context on an authenticated route
func HandleUserContextError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(ErrorResponse{
		Code:    CodeMissingUserContext,
		Message: message,
		Details: message,
	})
}

// HandleInvalidRequestError handles invalid request errors with 400 Bad Request
func HandleInvalidRequestError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    CodeInvalidRequest,
		Message: message,
		Details: message,
	})
}

// HandleUUIDError handles UUID parsing errors with 400 Bad Request
func HandleUUIDError(c *fiber.Ctx, fieldName string) error {
	message := fmt.Sprintf("Invalid %s format", fieldName)
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
		Code:    CodeInvalidUUID,
		Message: message,
		Details: message,
	})
}

// WrapValidationError wraps validation errors
func WrapValidationError(err error, details string) *PostError {
	return &PostError{
		Code:    CodeValidationFailed,
		Message: "Validation failed",
		Details: details,
		Cause:   err,
	}
}

// WrapStoreError marks err as a transient store failure
func WrapStoreError(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// IsRetryable reports whether the caller may retry the operation unchanged
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
