package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Aoli/gravel-biking/internal/core/domain"
)

var errStorageMissing = errors.New("route storage is not configured")

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, unprocessable, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errUnprocessable returns a 422 error for well-formed requests the
// editor cannot apply.
func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, 422, "unprocessable", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errFromDomain maps domain and service errors to responses.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRouteNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidIndex),
		errors.Is(err, domain.ErrInvalidInterval),
		errors.Is(err, domain.ErrMalformedTrack):
		return errUnprocessable(c, err.Error())
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return errBadRequest(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, 504, "timeout", "request timed out")
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
