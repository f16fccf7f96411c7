// Package handlers provides HTTP request handling
package handlers

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/carematch/carematch/internal/logger"
	"github.com/carematch/carematch/internal/services"
	"github.com/carematch/carematch/internal/types"
)

// Common error messages
const (
	ErrMsgInvalidReqBody  = "Invalid request body"
	ErrMsgJobIDRequired   = "Job id is required"
	ErrMsgInvalidJobID    = "Job id must be a uuid"
	ErrMsgNoUser          = "No authenticated user"
	ErrMsgCountersFailed  = "Failed to compute counters"
	ErrMsgInternalFailure = "Internal server error"
)

// statusOf maps a service error to its HTTP status
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrJobNotFound), errors.Is(err, services.ErrCandidateNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrWindowClosed):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// serviceError writes err as an ErrorResponse. Internal failures are logged and not echoed.
func serviceError(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	if status == fiber.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(types.ErrServer(ErrMsgInternalFailure))
	}
	return c.Status(status).JSON(types.ErrorResponse{Error: err.Error()})
}
