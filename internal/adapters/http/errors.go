package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/geofields/internal/core/domain"
	"github.com/samirrijal/geofields/internal/core/resource"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
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

// errMethodNotAllowed returns a 405 error.
func errMethodNotAllowed(c *fiber.Ctx, msg string) error {
	return newError(c, 405, "method_not_allowed", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errService maps an error from the resource service to a response.
// Conversion failures of incoming data are client errors; the same
// failures on stored data are internal ones.
func errService(c *fiber.Ctx, err error) error {
	var fieldErr *resource.FieldError
	var pgErr *pgconn.PgError

	switch {
	case errors.Is(err, domain.ErrUnknownResource), errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return errMethodNotAllowed(c, c.Method()+" is not allowed on this resource")
	case errors.As(err, &fieldErr) && c.Method() != fiber.MethodGet:
		return errBadRequest(c, fieldErr.Error())
	case errors.As(err, &pgErr):
		switch {
		case pgErr.Code == "23505":
			return errConflict(c, pgErr.Message)
		case pgErr.Code == "22P02" && c.Method() == fiber.MethodGet:
			return errNotFound(c, domain.ErrNotFound.Error())
		case len(pgErr.Code) == 5 && (pgErr.Code[:2] == "22" || pgErr.Code[:2] == "23"):
			// data exception or integrity violation
			return errBadRequest(c, pgErr.Message)
		}
	}

	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
