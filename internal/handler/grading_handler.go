package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/escolarhq/notas-api/internal/dto"
	"github.com/escolarhq/notas-api/internal/service"
	"github.com/escolarhq/notas-api/internal/utils"
)

// GradingHandler manages definitive grade and remediation endpoints.
type GradingHandler struct {
	definitive  service.DefinitiveGradeService
	remediation service.RemediationService
	logger      zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(definitive service.DefinitiveGradeService, remediation service.RemediationService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		definitive:  definitive,
		remediation: remediation,
		logger:      logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/compute", h.compute)
	router.Post("/remedial", h.registerRemedial)
}

func (h *GradingHandler) compute(c *fiber.Ctx) error {
	var payload dto.DefinitiveComputeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.definitive.Compute(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendPartial(c, "definitive grades computed", result.Processed, result.Errors)
}

func (h *GradingHandler) registerRemedial(c *fiber.Ctx) error {
	var payload dto.RemedialRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	grade, err := h.remediation.RegisterRemedial(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "remedial evaluation registered", grade)
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrPolicyNotFound):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "no grading policy resolves for the requested year and grade")
	case errors.Is(err, service.ErrDefinitiveNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "definitive grade not found")
	case errors.Is(err, service.ErrNotEligible):
		return utils.SendError(c, fiber.StatusConflict, "student is not eligible for remediation")
	case errors.Is(err, service.ErrScoreOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "remedial value outside the 0-20 range")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
