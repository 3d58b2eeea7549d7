package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/dto"
	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/repository"
)

// BatchScoreService registers many scores for one evaluation in a
// single call. Item-level validation failures are collected and
// reported next to the successes; a storage fault anywhere aborts the
// whole batch, already-registered items included.
type BatchScoreService interface {
	RegisterBatch(ctx context.Context, evaluationID uint, req dto.BatchScoreRequest, actor ActivityActor) (dto.BatchScoreResponse, error)
}

type batchScoreService struct {
	tx          repository.TxRunner
	scores      repository.ScoreRepository
	evaluations repository.EvaluationRepository
	students    repository.StudentRepository
	aggregator  PeriodAggregator
	validator   *validator.Validate
	activity    ActivityRecorder
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
}

// NewBatchScoreService constructs the batch registrar.
func NewBatchScoreService(tx repository.TxRunner, scores repository.ScoreRepository, evaluations repository.EvaluationRepository, students repository.StudentRepository, aggregator PeriodAggregator, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) BatchScoreService {
	return &batchScoreService{
		tx:          tx,
		scores:      scores,
		evaluations: evaluations,
		students:    students,
		aggregator:  aggregator,
		validator:   validate,
		activity:    activity,
		sanitizer:   newObservationsPolicy(),
		logger:      logger.With().Str("component", "batch_score_service").Logger(),
	}
}

func (s *batchScoreService) RegisterBatch(ctx context.Context, evaluationID uint, req dto.BatchScoreRequest, actor ActivityActor) (dto.BatchScoreResponse, error) {
	tracer := otel.Tracer("github.com/escolarhq/notas-api/internal/service/batch_score")
	ctx, span := tracer.Start(ctx, "score.register_batch")
	span.SetAttributes(
		attribute.Int64("batch.evaluation_id", int64(evaluationID)),
		attribute.Int("batch.items", len(req.Items)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.BatchScoreResponse{}, err
	}

	evaluation, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "evaluation_not_found")
			return dto.BatchScoreResponse{}, ErrEvaluationNotFound
		}
		return dto.BatchScoreResponse{}, err
	}

	response := dto.BatchScoreResponse{EvaluationID: evaluationID}
	key := evaluation.Key()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, item := range req.Items {
			reason, ok, err := s.checkItem(ctx, item)
			if err != nil {
				return err
			}
			if !ok {
				response.Errors = append(response.Errors, dto.BatchScoreError{
					StudentID: item.StudentID,
					Reason:    reason,
				})
				continue
			}

			result, err := s.registerItem(ctx, evaluationID, item)
			if err != nil {
				return err
			}

			if err := s.aggregator.Recompute(ctx, item.StudentID, key); err != nil {
				return err
			}

			response.Results = append(response.Results, result)
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch_register_failed")
		return dto.BatchScoreResponse{}, err
	}

	s.record(ctx, actor, evaluation, len(response.Results), len(response.Errors))
	span.SetAttributes(
		attribute.Int("batch.succeeded", len(response.Results)),
		attribute.Int("batch.failed", len(response.Errors)),
	)

	return response, nil
}

// checkItem validates one batch entry; a false return carries the
// per-student reason reported to the caller. Storage errors surface
// separately so they can abort the batch.
func (s *batchScoreService) checkItem(ctx context.Context, item dto.BatchScoreItem) (string, bool, error) {
	student, err := s.students.GetByID(ctx, item.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "student not found", false, nil
		}
		return "", false, err
	}
	if !student.IsStudent() {
		return "directory record is not a student", false, nil
	}

	if !models.InScoreRange(item.Value) {
		return fmt.Sprintf("value %.2f outside the 0-20 range", item.Value), false, nil
	}

	return "", true, nil
}

func (s *batchScoreService) registerItem(ctx context.Context, evaluationID uint, item dto.BatchScoreItem) (dto.BatchScoreResult, error) {
	observations := s.sanitizer.Sanitize(item.Observations)

	existing, err := s.scores.GetByStudentAndEvaluation(ctx, item.StudentID, evaluationID)
	if err == nil {
		existing.Value = item.Value
		if observations != "" {
			existing.Observations = observations
		}
		if err := s.scores.Update(ctx, &existing); err != nil {
			return dto.BatchScoreResult{}, err
		}

		return dto.BatchScoreResult{
			StudentID: item.StudentID,
			ScoreID:   existing.ID,
			Value:     existing.Value,
			Status:    dto.BatchItemUpdated,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.BatchScoreResult{}, err
	}

	score := models.Score{
		StudentID:    item.StudentID,
		EvaluationID: evaluationID,
		Value:        item.Value,
		Observations: observations,
	}
	if err := s.scores.Create(ctx, &score); err != nil {
		return dto.BatchScoreResult{}, err
	}

	return dto.BatchScoreResult{
		StudentID: item.StudentID,
		ScoreID:   score.ID,
		Value:     score.Value,
		Status:    dto.BatchItemCreated,
	}, nil
}

func (s *batchScoreService) record(ctx context.Context, actor ActivityActor, evaluation models.Evaluation, succeeded, failed int) {
	if s.activity == nil {
		return
	}

	evaluationID := evaluation.ID
	_, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionBatchRegistered,
		EntityType: "evaluation",
		EntityID:   &evaluationID,
		Metadata: map[string]interface{}{
			"subject_id": evaluation.SubjectID,
			"period":     evaluation.Period,
			"succeeded":  succeeded,
			"failed":     failed,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to record grading activity")
	}
}
