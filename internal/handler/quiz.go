package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/quizbeat/api/internal/model"
	"github.com/quizbeat/api/internal/service"
	"github.com/quizbeat/api/pkg/response"
)

type QuizHandler struct {
	service   *service.QuizService
	validator *validator.Validate
}

func NewQuizHandler(svc *service.QuizService, v *validator.Validate) *QuizHandler {
	return &QuizHandler{
		service:   svc,
		validator: v,
	}
}

// Process handles POST /process: the first song is resolved inline so
// the quiz can start immediately; the rest is queued.
func (h *QuizHandler) Process(c *fiber.Ctx) error {
	var req model.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Process(c.Context(), &req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}
