package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/models"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
	"github.com/scriptgrade/scriptgrade-api/internal/service"
	"github.com/scriptgrade/scriptgrade-api/internal/utils"
)

// EvaluationHandler wires evaluation HTTP routes.
type EvaluationHandler struct {
	service   service.EvaluationService
	batch     service.BatchEvaluationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(evaluationService service.EvaluationService, batch service.BatchEvaluationService, validator *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:   evaluationService,
		batch:     batch,
		validator: validator,
		logger:    logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches evaluation endpoints to the router group. The batch
// endpoint is registered separately so the router can guard it with a
// stricter role check.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/student/:id", h.listByStudent)
	router.Get("/:id", h.get)
	router.Post("", h.submit)
}

// RegisterBatch attaches the batch grading endpoint.
func (h *EvaluationHandler) RegisterBatch(router fiber.Router) {
	router.Post("/batch", h.evaluateBatch)
}

// submit accepts a multipart answer-sheet upload and queues it for grading.
// Grading happens asynchronously; the response is the pending evaluation.
func (h *EvaluationHandler) submit(c *fiber.Ctx) error {
	var payload dto.EvaluationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	// Students always submit for themselves.
	if userRoleFromContext(c) == models.RoleStudent {
		payload.StudentID = userIDFromContext(c)
	}

	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "answer file missing")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "could not read answer file")
	}
	defer file.Close()

	evaluation, err := h.service.Submit(c.Context(), payload, fileHeader.Filename, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "evaluation queued", evaluation)
}

func (h *EvaluationHandler) list(c *fiber.Ctx) error {
	filter := repository.EvaluationFilter{}

	studentID, err := parseUintQuery(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.StudentID = studentID

	questionID, err := parseUintQuery(c, "question_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.QuestionID = questionID

	questionSetID, err := parseUintQuery(c, "question_set_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.QuestionSetID = questionSetID

	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	// Students only see their own evaluations.
	if userRoleFromContext(c) == models.RoleStudent {
		studentID := userIDFromContext(c)
		filter.StudentID = &studentID
	}

	evaluations, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "evaluations retrieved", evaluations)
}

func (h *EvaluationHandler) listByStudent(c *fiber.Ctx) error {
	studentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if userRoleFromContext(c) == models.RoleStudent && studentID != userIDFromContext(c) {
		return utils.SendError(c, fiber.StatusForbidden, "evaluations belong to another student")
	}

	evaluations, err := h.service.List(c.Context(), repository.EvaluationFilter{StudentID: &studentID})
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "evaluations retrieved", evaluations)
}

func (h *EvaluationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	evaluation, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	if userRoleFromContext(c) == models.RoleStudent && evaluation.StudentID != userIDFromContext(c) {
		return utils.SendError(c, fiber.StatusForbidden, "evaluation belongs to another student")
	}

	return utils.SendSuccess(c, "evaluation retrieved", evaluation)
}

func (h *EvaluationHandler) evaluateBatch(c *fiber.Ctx) error {
	var payload dto.BatchEvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.batch.EvaluateBatch(c.Context(), payload.EvaluationIDs)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, result.Message, result)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEvaluationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrNotPDF):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "uploaded file is not a PDF")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *EvaluationHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
