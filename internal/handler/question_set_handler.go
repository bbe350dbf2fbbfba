package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/repository"
	"github.com/scriptgrade/scriptgrade-api/internal/service"
	"github.com/scriptgrade/scriptgrade-api/internal/utils"
)

// QuestionSetHandler wires question set HTTP routes.
type QuestionSetHandler struct {
	service   service.QuestionSetService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionSetHandler constructs the handler.
func NewQuestionSetHandler(service service.QuestionSetService, validator *validator.Validate, logger zerolog.Logger) *QuestionSetHandler {
	return &QuestionSetHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "question_set_handler").Logger(),
	}
}

// Register attaches question set endpoints to the router group.
func (h *QuestionSetHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/questions", h.addQuestion)
	router.Post("/:id/questions/batch", h.addQuestions)
	router.Delete("/:id/questions/:question_id", h.removeQuestion)
}

func (h *QuestionSetHandler) list(c *fiber.Ctx) error {
	filter := repository.QuestionSetFilter{}
	subjectID, err := parseUintQuery(c, "subject_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.SubjectID = subjectID

	if raw := c.Query("is_test"); raw != "" {
		isTest, err := strconv.ParseBool(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid is_test")
		}
		filter.IsTest = &isTest
	}

	sets, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "question sets retrieved", sets)
}

func (h *QuestionSetHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question set retrieved", set)
}

func (h *QuestionSetHandler) create(c *fiber.Ctx) error {
	var payload dto.QuestionSetCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question set created", set)
}

func (h *QuestionSetHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionSetUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.Update(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question set updated", set)
}

func (h *QuestionSetHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id, userIDFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question set deleted", fiber.Map{"id": id})
}

func (h *QuestionSetHandler) addQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionSetAddQuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.AddQuestion(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question added to set", set)
}

func (h *QuestionSetHandler) addQuestions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionSetAddQuestionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.AddQuestions(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "questions added to set", set)
}

func (h *QuestionSetHandler) removeQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	questionID, err := parseUintParam(c, "question_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	set, err := h.service.RemoveQuestion(c.Context(), id, userIDFromContext(c), questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question removed from set", set)
}

func (h *QuestionSetHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrQuestionSetNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question set not found")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrSubjectNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "subject not found")
	case errors.Is(err, service.ErrNotSetOwner):
		return utils.SendError(c, fiber.StatusForbidden, "question set belongs to another teacher")
	case errors.Is(err, service.ErrQuestionAlreadyInSet):
		return utils.SendError(c, fiber.StatusConflict, "question already in set")
	case errors.Is(err, service.ErrQuestionNotInSet):
		return utils.SendError(c, fiber.StatusNotFound, "question not in set")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *QuestionSetHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
