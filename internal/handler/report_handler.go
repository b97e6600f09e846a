package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edubase-reports-api/internal/dto"
	"github.com/noah-isme/edubase-reports-api/internal/service"
	"github.com/noah-isme/edubase-reports-api/internal/utils"
)

// ReportHandler wires report HTTP routes.
type ReportHandler struct {
	service service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(service service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches report endpoints to the router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/dashboard", h.dashboard)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Get("/:id/data", h.data)
	router.Get("/:id/download", h.download)
	router.Get("/:id/export", h.export)
}

func (h *ReportHandler) list(c *fiber.Ctx) error {
	query := dto.ReportListQuery{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}

	reports, err := h.service.List(c.Context(), query)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "reports retrieved", reports)
}

func (h *ReportHandler) dashboard(c *fiber.Ctx) error {
	dashboard, err := h.service.Dashboard(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "reports dashboard retrieved", dashboard)
}

// create persists the report row and generates its artifact in the same
// request. The client gets the completed (or failed) report back.
func (h *ReportHandler) create(c *fiber.Ctx) error {
	var payload dto.ReportCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	report, err := h.service.Create(c.Context(), payload, userIDFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	generated, err := h.service.Generate(c.Context(), report.ID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report generated", generated)
}

func (h *ReportHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report retrieved", report)
}

func (h *ReportHandler) data(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	data, err := h.service.GetReportData(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "report data retrieved", data)
}

func (h *ReportHandler) download(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	reader, filename, err := h.service.OpenArtifact(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	return c.SendStream(reader)
}

func (h *ReportHandler) export(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	// Rows go straight into the response body; nothing is written before
	// the report and its type are validated, so failures can still reset
	// the body and map to a status.
	filename, err := h.service.ExportCSV(c.Context(), id, c.Response().BodyWriter())
	if err != nil {
		c.Response().ResetBody()
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	return nil
}

func (h *ReportHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrReportNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "report not found")
	case errors.Is(err, service.ErrIdentityRequired):
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrReportNotPending):
		return utils.SendError(c, fiber.StatusConflict, "report is not pending generation")
	case errors.Is(err, service.ErrReportNotCompleted):
		return utils.SendError(c, fiber.StatusConflict, "report has no completed artifact")
	case errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrCenterNotFound),
		errors.Is(err, service.ErrCSVUnsupported),
		isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
