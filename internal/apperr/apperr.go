// Package apperr defines the application error taxonomy and the single
// boundary handler that maps every error to the JSON envelope
// {"message": ..., "error": <code>}. Handlers and middleware return
// *apperr.Error values; anything else surfaces as a generic 500 so no
// internal detail leaks to clients.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Error codes returned in the "error" field of failure responses.
const (
	CodeInvalid            = "invalid"
	CodeUnauthenticated    = "unauthenticated"
	CodeAttack             = "attack"
	CodeUnauthorised       = "unauthorised"
	CodeUserExist          = "userExist"
	CodeUploadRequired     = "upload_required"
	CodeOptimizationFailed = "optimization_failed"
	CodeServerError        = "server_error"
)

// Error carries the HTTP status, a stable machine code and a
// client-safe message.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// New builds an Error with explicit status and code.
func New(message string, status int, code string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Invalid reports bad input (400).
func Invalid(message string) *Error {
	return New(message, http.StatusBadRequest, CodeInvalid)
}

// Unauthenticated reports missing, expired or revoked credentials (401).
func Unauthenticated() *Error {
	return New("You are not an authenticated user.", http.StatusUnauthorized, CodeUnauthenticated)
}

// Attack reports a tampered token signature (400). Distinct from plain
// expiry so clients do not blindly retry a refresh with a forged token.
func Attack(message string) *Error {
	return New(message, http.StatusBadRequest, CodeAttack)
}

// Unauthorised reports a role mismatch (403).
func Unauthorised() *Error {
	return New("This action is not allowed.", http.StatusForbidden, CodeUnauthorised)
}

// UserExist reports a duplicate registration field (400).
func UserExist(field string) *Error {
	return New("This "+field+" has already been registered.", http.StatusBadRequest, CodeUserExist)
}

// ModelNotFound reports a missing entity. It deliberately maps to 401
// with code "invalid", matching the API's established convention.
func ModelNotFound() *Error {
	return New("This data model does not exist.", http.StatusUnauthorized, CodeInvalid)
}

// UploadRequired reports a missing file on an upload endpoint (400).
func UploadRequired() *Error {
	return New("Image file is required.", http.StatusBadRequest, CodeUploadRequired)
}

// OptimizationFailed reports a failure in the image pipeline (500).
func OptimizationFailed() *Error {
	return New("Image optimization failed.", http.StatusInternalServerError, CodeOptimizationFailed)
}

// Server reports a persistence or object-store failure (500).
func Server(message string) *Error {
	return New(message, http.StatusInternalServerError, CodeServerError)
}

// Handler returns an echo.HTTPErrorHandler funnelling every error into
// the {message, error} envelope. Unknown errors are logged and reported
// as server_error without detail.
func Handler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		code := CodeServerError
		message := "Internal server error."

		var ae *Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status, code, message = ae.Status, ae.Code, ae.Message
		case errors.As(err, &he):
			status = he.Code
			if s, ok := he.Message.(string); ok {
				message = s
			}
			if status < http.StatusInternalServerError {
				code = CodeInvalid
			}
		default:
			log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		_ = c.JSON(status, echo.Map{"message": message, "error": code})
	}
}
