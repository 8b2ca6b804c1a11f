package handler

import (
	"quiz-arena/internal/domain"
	"quiz-arena/internal/dto"
	"quiz-arena/internal/middleware"
	"quiz-arena/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AttemptHandler handles quiz attempt HTTP requests
type AttemptHandler struct {
	service service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler instance
func NewAttemptHandler(service service.AttemptService) *AttemptHandler {
	return &AttemptHandler{
		service: service,
	}
}

// contestantID returns the authenticated contestant id from the request context.
func contestantID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals(middleware.ContestantIDKey).(string)
	if !ok || id == "" {
		return "", domain.NewUnauthorizedError("missing contestant identity")
	}
	return id, nil
}

// StartAttempt godoc
// @Summary Start or resume a quiz attempt
// @Description Starts a timed attempt for the quiz, or resumes the contestant's existing attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param quizId path string true "Quiz ID"
// @Security BearerAuth
// @Success 200 {object} dto.StartAttemptResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /quizzes/{quizId}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *fiber.Ctx) error {
	cid, err := contestantID(c)
	if err != nil {
		return err
	}
	quizID := c.Params("quizId")

	resp, err := h.service.StartAttempt(c.Context(), cid, quizID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// SaveAnswer godoc
// @Summary Save an answer for a question
// @Description Records the contestant's current selection for a question of an in-progress attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Param questionId path string true "Question ID"
// @Param request body dto.SaveAnswerRequest true "Selected option labels"
// @Security BearerAuth
// @Success 200 {object} dto.SaveAnswerResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /attempts/{attemptId}/answers/{questionId} [put]
func (h *AttemptHandler) SaveAnswer(c *fiber.Ctx) error {
	cid, err := contestantID(c)
	if err != nil {
		return err
	}
	attemptID := c.Params("attemptId")
	questionID := c.Params("questionId")

	var req dto.SaveAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidInputError("invalid request body")
	}

	resp, err := h.service.SaveAnswer(c.Context(), cid, attemptID, questionID, req.Selections)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// SubmitAttempt godoc
// @Summary Submit an attempt
// @Description Finalizes the attempt, scores it and returns the result. Idempotent for repeated calls.
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Security BearerAuth
// @Success 200 {object} dto.SubmitAttemptResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /attempts/{attemptId}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *fiber.Ctx) error {
	cid, err := contestantID(c)
	if err != nil {
		return err
	}
	attemptID := c.Params("attemptId")

	resp, err := h.service.SubmitAttempt(c.Context(), cid, attemptID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetAttemptState godoc
// @Summary Get attempt state
// @Description Returns the current answers, position and remaining time of the attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Security BearerAuth
// @Success 200 {object} dto.AttemptStateResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /attempts/{attemptId} [get]
func (h *AttemptHandler) GetAttemptState(c *fiber.Ctx) error {
	cid, err := contestantID(c)
	if err != nil {
		return err
	}
	attemptID := c.Params("attemptId")

	resp, err := h.service.GetAttemptState(c.Context(), cid, attemptID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GetResult godoc
// @Summary Get attempt result
// @Description Returns the score and timing of a submitted attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attemptId path string true "Attempt ID"
// @Security BearerAuth
// @Success 200 {object} dto.SubmitAttemptResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /attempts/{attemptId}/result [get]
func (h *AttemptHandler) GetResult(c *fiber.Ctx) error {
	cid, err := contestantID(c)
	if err != nil {
		return err
	}
	attemptID := c.Params("attemptId")

	resp, err := h.service.GetResult(c.Context(), cid, attemptID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
