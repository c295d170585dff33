package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/dto"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/services"
	"github.com/ahmetcoskunkizilkaya/emoji-riddle/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

// CreateReport handles POST /api/reports
func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	userID, err := tenant.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	report, err := h.moderationService.CreateReport(c.UserContext(), appID, userID, &req)
	if err != nil {
		return reportError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

// reportError maps report failures to responses. Lookup and database errors
// are logged and hidden from the player.
func reportError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Failed to create report"
	switch {
	case errors.Is(err, services.ErrReportedContentNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrAlreadyReported):
		status, message = fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrInvalidContentType),
		errors.Is(err, services.ErrContentIDRequired),
		errors.Is(err, services.ErrReasonRequired):
		status, message = fiber.StatusBadRequest, err.Error()
	default:
		slog.Error("report failed", "app_id", tenant.GetAppID(c), "action", "create_report", "error", err)
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// ListReports handles GET /api/admin/moderation/reports?status=&content_type=&limit=&offset=
func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	filter := services.ReportFilter{
		Status:      c.Query("status"),
		ContentType: c.Query("content_type"),
		Limit:       c.QueryInt("limit", 20),
		Offset:      c.QueryInt("offset", 0),
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	reports, total, err := h.moderationService.ListReports(appID, filter)
	if err != nil {
		slog.Error("list reports failed", "app_id", appID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch reports",
		})
	}

	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// ActionReport handles PUT /api/admin/moderation/reports/:id
func (h *ModerationHandler) ActionReport(c *fiber.Ctx) error {
	appID := tenant.GetAppID(c)
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid report ID",
		})
	}

	var req dto.ActionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	if err := h.moderationService.ActionReport(appID, reportID, &req); err != nil {
		switch {
		case errors.Is(err, services.ErrReportNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
		case errors.Is(err, services.ErrInvalidReportStatus):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
		}
		slog.Error("action report failed", "app_id", appID, "report_id", reportID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to update report",
		})
	}

	return c.JSON(fiber.Map{"message": "Report updated successfully"})
}
