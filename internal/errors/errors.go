package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"menuservice/internal/logger"
)

var (
	// ErrUnauthenticated is returned when a protected route receives no token.
	ErrUnauthenticated = errors.New("not authorized to access this route, no token provided")
	// ErrInvalidToken is returned when a token is malformed, expired, revoked or badly signed.
	ErrInvalidToken = errors.New("not authorized to access this route, invalid token")
	// ErrStaleSubject is returned when the token's user no longer exists.
	ErrStaleSubject = errors.New("the user belonging to this token no longer exists")
	// ErrStaleToken is returned when the token predates the user's last password change.
	ErrStaleToken = errors.New("user recently changed password, please log in again")
	// ErrForbidden is returned when the caller lacks the role or ownership for a route.
	ErrForbidden = errors.New("not authorized to access this resource")
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation is returned on schema constraint violations.
	ErrValidation = errors.New("validation failed")
	// ErrInternal is returned on unexpected store or infrastructure failures.
	ErrInternal = errors.New("server error")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HTTPError represents an HTTP error with status code. Err is the taxonomy
// sentinel it belongs to, so errors.Is works across layers.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Err        error
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: e.Message,
		Code:    e.Code,
	}
}

// Unauthenticated builds a 401 for a missing token.
func Unauthenticated() *HTTPError {
	return &HTTPError{http.StatusUnauthorized, "Not authorized to access this route. No token provided.", "UNAUTHENTICATED", ErrUnauthenticated}
}

// InvalidToken builds a 401 for a token that failed verification.
func InvalidToken() *HTTPError {
	return &HTTPError{http.StatusUnauthorized, "Not authorized to access this route. Invalid token.", "INVALID_TOKEN", ErrInvalidToken}
}

// StaleSubject builds a 401 for a token whose user was removed.
func StaleSubject() *HTTPError {
	return &HTTPError{http.StatusUnauthorized, "The user belonging to this token no longer exists.", "STALE_SUBJECT", ErrStaleSubject}
}

// StaleToken builds a 401 for a token issued before a password change.
func StaleToken() *HTTPError {
	return &HTTPError{http.StatusUnauthorized, "User recently changed password. Please log in again.", "STALE_TOKEN", ErrStaleToken}
}

// Forbidden builds a 403 with the given message.
func Forbidden(message string) *HTTPError {
	return &HTTPError{http.StatusForbidden, message, "FORBIDDEN", ErrForbidden}
}

// NotFound builds a 404 with the given message.
func NotFound(message string) *HTTPError {
	return &HTTPError{http.StatusNotFound, message, "NOT_FOUND", ErrNotFound}
}

// NotFoundf builds a 404 with a formatted message.
func NotFoundf(format string, args ...any) *HTTPError {
	return NotFound(fmt.Sprintf(format, args...))
}

// InvalidCredentials builds a 401 for a failed password check.
func InvalidCredentials(message string) *HTTPError {
	return &HTTPError{http.StatusUnauthorized, message, "INVALID_CREDENTIALS", ErrUnauthenticated}
}

// Validation builds a 400 with the given message.
func Validation(message string) *HTTPError {
	return &HTTPError{http.StatusBadRequest, message, "VALIDATION_FAILED", ErrValidation}
}

// Internal wraps an unexpected failure as a 500. The cause is kept for logging.
func Internal(cause error) *HTTPError {
	return &HTTPError{http.StatusInternalServerError, "Server Error", "INTERNAL_ERROR", errors.Join(ErrInternal, cause)}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return fromEcho(echoErr)
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return Unauthenticated()
	case errors.Is(err, ErrInvalidToken):
		return InvalidToken()
	case errors.Is(err, ErrStaleSubject):
		return StaleSubject()
	case errors.Is(err, ErrStaleToken):
		return StaleToken()
	case errors.Is(err, ErrForbidden):
		return Forbidden("Not authorized to access this resource")
	case errors.Is(err, ErrNotFound):
		return NotFound("Resource not found")
	case errors.Is(err, ErrValidation):
		return Validation(err.Error())
	default:
		return Internal(err)
	}
}

func fromEcho(he *echo.HTTPError) *HTTPError {
	message := http.StatusText(he.Code)
	switch m := he.Message.(type) {
	case string:
		message = m
	case ErrorResponse:
		message = m.Message
	case error:
		message = m.Error()
	}

	switch he.Code {
	case http.StatusBadRequest:
		return Validation(message)
	case http.StatusNotFound:
		return NotFound(message)
	case http.StatusForbidden:
		return Forbidden(message)
	case http.StatusInternalServerError:
		return Internal(he)
	}
	return &HTTPError{StatusCode: he.Code, Message: message, Code: "HTTP_ERROR", Err: he}
}

// ErrorHandler renders every error returned by a guard or handler as
// {success:false,message}. It is installed as echo's HTTPErrorHandler.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	httpErr := MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		logger.FromEcho(c).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err.Error(),
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(httpErr.StatusCode)
	} else {
		writeErr = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	if writeErr != nil {
		logger.FromEcho(c).Warn("write error response", "error", writeErr.Error())
	}
}
