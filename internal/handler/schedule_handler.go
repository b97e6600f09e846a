package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/service"
	"github.com/noah-isme/edubase-reports-api/internal/utils"
)

// ScheduleHandler wires report schedule HTTP routes.
type ScheduleHandler struct {
	service service.ScheduleService
	logger  zerolog.Logger
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(service service.ScheduleService, logger zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		logger:  logger.With().Str("component", "schedule_handler").Logger(),
	}
}

// Register attaches schedule endpoints to the router group.
func (h *ScheduleHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Patch("/:id/activation", h.setActivation)
}

func (h *ScheduleHandler) list(c *fiber.Ctx) error {
	schedules, err := h.service.List(c.Context(), c.QueryBool("active"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report schedules retrieved", schedules)
}

func (h *ScheduleHandler) create(c *fiber.Ctx) error {
	var payload dto.ScheduleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	schedule, err := h.service.Create(c.Context(), payload, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report schedule created", schedule)
}

func (h *ScheduleHandler) setActivation(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ScheduleActivationRequest
	if err := c.BodyParser(&payload); err != nil || payload.IsActive == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "is_active must be provided")
	}

	schedule, err := h.service.SetActive(c.Context(), id, *payload.IsActive)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report schedule updated", schedule)
}

func (h *ScheduleHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "report schedule not found")
	case errors.Is(err, service.ErrIdentityRequired):
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrCenterNotFound), isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
