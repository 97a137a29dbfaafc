package httpx

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/JunaYa/ferriskey/internal/identity"
	"github.com/JunaYa/ferriskey/internal/policy"
)

// APIError is a structured application error with code and message.
type APIError struct {
	HTTPStatus int         `json:"status"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(httpStatus int, code, msg string, details interface{}) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Message: msg, Details: details}
}

// Common helpers
func BadRequest(msg string, details interface{}) error {
	return NewAPIError(http.StatusBadRequest, "E_INVALID_PARAM", msg, details)
}
func NotFound(msg string) error { return NewAPIError(http.StatusNotFound, "E_NOT_FOUND", msg, nil) }
func Unauthorized(msg string) error {
	return NewAPIError(http.StatusUnauthorized, "E_UNAUTHORIZED", msg, nil)
}
func Forbidden(msg string) error {
	return NewAPIError(http.StatusForbidden, "E_FORBIDDEN", msg, nil)
}
func InternalError(msg string, details interface{}) error {
	return NewAPIError(http.StatusInternalServerError, "E_INTERNAL", msg, details)
}

// tokenErrorMessage distinguishes the four token failure kinds. They all
// render as 401 E_UNAUTHORIZED; only the message differs.
func tokenErrorMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, identity.ErrTokenExpired):
		return "Token expired", true
	case errors.Is(err, identity.ErrTokenNotFound):
		return "Token not found", true
	case errors.Is(err, identity.ErrInvalidSignature):
		return "Invalid signature", true
	case errors.Is(err, identity.ErrInvalidToken):
		return "Invalid token", true
	}
	return "", false
}

// ErrorHandler returns a Fiber error handler that emits unified error
// responses. Domain sentinels map onto the error taxonomy so handlers can
// return them directly.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if msg, ok := tokenErrorMessage(err); ok {
			return render(c, http.StatusUnauthorized, "E_UNAUTHORIZED", msg, nil)
		}
		if errors.Is(err, policy.ErrAccessDenied) {
			return render(c, http.StatusForbidden, "E_FORBIDDEN", "Access denied", nil)
		}
		if errors.Is(err, identity.ErrNotFound) {
			return render(c, http.StatusNotFound, "E_NOT_FOUND", err.Error(), nil)
		}

		// Fiber error
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return render(c, fe.Code, httpStatusToCode(fe.Code), fe.Message, nil)
		}

		// Application error
		var ae *APIError
		if errors.As(err, &ae) {
			return render(c, ae.HTTPStatus, ae.Code, ae.Message, ae.Details)
		}

		// Fallback
		return render(c, http.StatusInternalServerError, "E_INTERNAL", "Internal Server Error", nil)
	}
}

func render(c *fiber.Ctx, status int, code, msg string, details interface{}) error {
	body := fiber.Map{
		"code":       code,
		"message":    msg,
		"status":     status,
		"request_id": requestID(c),
	}
	if details != nil {
		body["details"] = details
	}
	return c.Status(status).JSON(body)
}

func httpStatusToCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "E_INVALID_PARAM"
	case http.StatusNotFound:
		return "E_NOT_FOUND"
	case http.StatusUnauthorized:
		return "E_UNAUTHORIZED"
	case http.StatusForbidden:
		return "E_FORBIDDEN"
	default:
		if status >= 500 {
			return "E_INTERNAL"
		}
		return "E_UNKNOWN"
	}
}
