package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/quizbeat/api/internal/model"
	"github.com/quizbeat/api/internal/service"
	"github.com/quizbeat/api/pkg/response"
)

// WorkerHandler receives signed HTTP job deliveries from the queue
// provider. Signature verification happens in middleware before this
// handler runs.
type WorkerHandler struct {
	service   *service.QuizService
	validator *validator.Validate
}

func NewWorkerHandler(svc *service.QuizService, v *validator.Validate) *WorkerHandler {
	return &WorkerHandler{
		service:   svc,
		validator: v,
	}
}

// Handle handles POST /worker.
func (h *WorkerHandler) Handle(c *fiber.Ctx) error {
	var req model.WorkerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.ProcessJob(c.Context(), req.JobID, req.SongsToProcess); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, fiber.Map{"success": true})
}
