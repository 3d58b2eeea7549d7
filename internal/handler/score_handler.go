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

// ScoreHandler manages single-score and batch registration endpoints.
type ScoreHandler struct {
	scores service.ScoreService
	batch  service.BatchScoreService
	logger zerolog.Logger
}

// NewScoreHandler builds a score handler instance.
func NewScoreHandler(scores service.ScoreService, batch service.BatchScoreService, logger zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{
		scores: scores,
		batch:  batch,
		logger: logger.With().Str("component", "score_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ScoreHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

// RegisterBatch attaches the batch endpoint under the evaluations group.
func (h *ScoreHandler) RegisterBatch(router fiber.Router) {
	router.Post("/:id/scores/batch", h.registerBatch)
}

func (h *ScoreHandler) create(c *fiber.Ctx) error {
	var payload dto.ScoreCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	score, err := h.scores.Create(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "score registered", score)
}

func (h *ScoreHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ScoreUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	score, err := h.scores.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score updated", score)
}

func (h *ScoreHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.scores.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score deleted", nil)
}

func (h *ScoreHandler) registerBatch(c *fiber.Ctx) error {
	evaluationID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.BatchScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.batch.RegisterBatch(c.UserContext(), evaluationID, payload, activityActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendPartial(c, "batch registered", result.Results, result.Errors)
}

func (h *ScoreHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrScoreOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "score value outside the 0-20 range")
	case errors.Is(err, service.ErrScoreExists):
		return utils.SendError(c, fiber.StatusConflict, "score already registered for this student and evaluation")
	case errors.Is(err, service.ErrScoreNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "score not found")
	case errors.Is(err, service.ErrEvaluationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrNotAStudent):
		return utils.SendError(c, fiber.StatusBadRequest, "directory record is not a student")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
