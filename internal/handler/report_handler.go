package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/escolarhq/notas-api/internal/service"
	"github.com/escolarhq/notas-api/internal/utils"
)

// ReportHandler serves the cohort gradebook report.
type ReportHandler struct {
	reports service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler builds a report handler instance.
func NewReportHandler(reports service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ReportHandler) Register(router fiber.Router) {
	router.Get("/gradebook", h.gradebook)
}

func (h *ReportHandler) gradebook(c *fiber.Ctx) error {
	yearID, err := parseQueryUint(c, "school_year_id")
	if err != nil || yearID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "school_year_id is required")
	}

	gradeID, err := parseQueryUint(c, "grade_level_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sectionID, err := parseQueryUint(c, "section_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.reports.GetGradebook(c.UserContext(), *yearID, gradeID, sectionID)
	if err != nil {
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "gradebook retrieved", report)
}
