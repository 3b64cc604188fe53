package middleware

import (
	"pdf-quiz/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the validation middleware.
const (
	LocalSessionID    = "validated_session_id"
	LocalResultsLimit = "validated_limit"
)

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateSessionID validates the :id path parameter.
func (vm *ValidationMiddleware) ValidateSessionID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if errors := vm.validator.ValidateSessionID(id); len(errors) > 0 {
			return errors // handled by ErrorHandler
		}
		c.Locals(LocalSessionID, id)
		return c.Next()
	}
}

// ValidateResultsLimit validates the optional limit query parameter.
func (vm *ValidationMiddleware) ValidateResultsLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, errors := vm.validator.ValidateResultsLimit(c.Query("limit"))
		if len(errors) > 0 {
			return errors
		}
		c.Locals(LocalResultsLimit, limit)
		return c.Next()
	}
}
