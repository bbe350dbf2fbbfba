package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/scriptgrade/scriptgrade-api/internal/dto"
	"github.com/scriptgrade/scriptgrade-api/internal/service"
	"github.com/scriptgrade/scriptgrade-api/internal/utils"
)

// RecheckHandler wires recheck HTTP routes.
type RecheckHandler struct {
	service   service.RecheckService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRecheckHandler constructs the handler.
func NewRecheckHandler(service service.RecheckService, validator *validator.Validate, logger zerolog.Logger) *RecheckHandler {
	return &RecheckHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "recheck_handler").Logger(),
	}
}

// Register attaches student-facing recheck endpoints.
func (h *RecheckHandler) Register(router fiber.Router) {
	router.Post("", h.create)
}

// RegisterModeration attaches moderator endpoints.
func (h *RecheckHandler) RegisterModeration(router fiber.Router) {
	router.Get("/pending", h.listPending)
	router.Post("/:id/respond", h.respond)
}

func (h *RecheckHandler) create(c *fiber.Ctx) error {
	var payload dto.RecheckCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	recheck, err := h.service.Create(c.Context(), userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "recheck filed", recheck)
}

func (h *RecheckHandler) respond(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RecheckRespondRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	recheck, err := h.service.Respond(c.Context(), id, userIDFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "recheck resolved", recheck)
}

func (h *RecheckHandler) listPending(c *fiber.Ctx) error {
	rechecks, err := h.service.ListPending(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "pending rechecks retrieved", rechecks)
}

func (h *RecheckHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrRecheckNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "recheck not found")
	case errors.Is(err, service.ErrEvaluationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation not found")
	case errors.Is(err, service.ErrRecheckAlreadyResolved):
		return utils.SendError(c, fiber.StatusConflict, "recheck already resolved")
	case errors.Is(err, service.ErrEvaluationNotGraded):
		return utils.SendError(c, fiber.StatusConflict, "evaluation has no result to recheck")
	case errors.Is(err, service.ErrNotEvaluationOwner):
		return utils.SendError(c, fiber.StatusForbidden, "evaluation belongs to another student")
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *RecheckHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
