package middleware

import (
	"quiz-arena/internal/validation"

	"github.com/gofiber/fiber/v2"
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

// ValidateQuizID validates the quizId path parameter
func (vm *ValidationMiddleware) ValidateQuizID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		quizID := c.Params("quizId")

		if errors := vm.validator.ValidateQuizID(quizID); len(errors) > 0 {
			return errors // This will be handled by ErrorHandler middleware
		}

		c.Locals("validated_quiz_id", quizID)
		return c.Next()
	}
}

// ValidateAttemptID validates the attemptId path parameter
func (vm *ValidationMiddleware) ValidateAttemptID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		attemptID := c.Params("attemptId")

		if errors := vm.validator.ValidateAttemptID(attemptID); len(errors) > 0 {
			return errors
		}

		c.Locals("validated_attempt_id", attemptID)
		return c.Next()
	}
}
