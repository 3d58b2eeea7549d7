package service

import (
	"context"
	"errors"

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

// ErrScoreOutOfRange indicates a value outside the 0-20 grading scale.
var ErrScoreOutOfRange = errors.New("score value out of range")

// ErrScoreExists indicates a second create attempt for a (student,
// evaluation) pair; the update path must be used instead.
var ErrScoreExists = errors.New("score already exists for student and evaluation")

// ErrScoreNotFound indicates the score was not located.
var ErrScoreNotFound = errors.New("score not found")

// ErrEvaluationNotFound indicates the referenced evaluation does not
// resolve in the directory.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// ErrStudentNotFound indicates the referenced student does not resolve
// in the directory.
var ErrStudentNotFound = errors.New("student not found")

// ErrNotAStudent indicates the directory record exists but cannot
// receive scores.
var ErrNotAStudent = errors.New("directory record is not a student")

// ScoreService owns individual evaluation scores. Every mutation runs
// inside one transaction together with the period aggregate recompute
// for the owning key, so callers never observe a score without its
// aggregate.
type ScoreService interface {
	Create(ctx context.Context, payload dto.ScoreCreateRequest, actor ActivityActor) (dto.ScoreResponse, error)
	Update(ctx context.Context, scoreID uint, payload dto.ScoreUpdateRequest, actor ActivityActor) (dto.ScoreResponse, error)
	Delete(ctx context.Context, scoreID uint, actor ActivityActor) error
}

type scoreService struct {
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

// NewScoreService constructs the score service.
func NewScoreService(tx repository.TxRunner, scores repository.ScoreRepository, evaluations repository.EvaluationRepository, students repository.StudentRepository, aggregator PeriodAggregator, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ScoreService {
	return &scoreService{
		tx:          tx,
		scores:      scores,
		evaluations: evaluations,
		students:    students,
		aggregator:  aggregator,
		validator:   validate,
		activity:    activity,
		sanitizer:   newObservationsPolicy(),
		logger:      logger.With().Str("component", "score_service").Logger(),
	}
}

// newObservationsPolicy strips all markup from free-text observations
// before they are persisted.
func newObservationsPolicy() *bluemonday.Policy {
	return bluemonday.StrictPolicy()
}

func (s *scoreService) Create(ctx context.Context, payload dto.ScoreCreateRequest, actor ActivityActor) (dto.ScoreResponse, error) {
	tracer := otel.Tracer("github.com/escolarhq/notas-api/internal/service/score")
	ctx, span := tracer.Start(ctx, "score.create")
	span.SetAttributes(
		attribute.Int64("score.student_id", int64(payload.StudentID)),
		attribute.Int64("score.evaluation_id", int64(payload.EvaluationID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ScoreResponse{}, err
	}

	if !models.InScoreRange(payload.Value) {
		return dto.ScoreResponse{}, ErrScoreOutOfRange
	}

	student, err := s.students.GetByID(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, ErrStudentNotFound
		}
		return dto.ScoreResponse{}, err
	}
	if !student.IsStudent() {
		return dto.ScoreResponse{}, ErrNotAStudent
	}

	evaluation, err := s.evaluations.GetByID(ctx, payload.EvaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, ErrEvaluationNotFound
		}
		return dto.ScoreResponse{}, err
	}

	score := models.Score{
		StudentID:    payload.StudentID,
		EvaluationID: payload.EvaluationID,
		Value:        payload.Value,
		Observations: s.sanitizer.Sanitize(payload.Observations),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.scores.GetByStudentAndEvaluation(ctx, payload.StudentID, payload.EvaluationID); err == nil {
			return ErrScoreExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := s.scores.Create(ctx, &score); err != nil {
			return err
		}

		return s.aggregator.Recompute(ctx, payload.StudentID, evaluation.Key())
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "score_create_failed")
		return dto.ScoreResponse{}, err
	}

	s.record(ctx, actor, models.ActionScoreCreated, score)

	return dto.NewScoreResponse(score), nil
}

func (s *scoreService) Update(ctx context.Context, scoreID uint, payload dto.ScoreUpdateRequest, actor ActivityActor) (dto.ScoreResponse, error) {
	tracer := otel.Tracer("github.com/escolarhq/notas-api/internal/service/score")
	ctx, span := tracer.Start(ctx, "score.update")
	span.SetAttributes(attribute.Int64("score.id", int64(scoreID)))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ScoreResponse{}, err
	}

	if payload.Value != nil && !models.InScoreRange(*payload.Value) {
		return dto.ScoreResponse{}, ErrScoreOutOfRange
	}

	score, err := s.scores.GetByID(ctx, scoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, ErrScoreNotFound
		}
		return dto.ScoreResponse{}, err
	}

	if payload.Value != nil {
		score.Value = *payload.Value
	}
	if payload.Observations != nil {
		score.Observations = s.sanitizer.Sanitize(*payload.Observations)
	}

	evaluation, err := s.evaluations.GetByID(ctx, score.EvaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScoreResponse{}, ErrEvaluationNotFound
		}
		return dto.ScoreResponse{}, err
	}

	key := evaluation.Key()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.scores.Update(ctx, &score); err != nil {
			return err
		}

		return s.aggregator.Recompute(ctx, score.StudentID, key)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "score_update_failed")
		return dto.ScoreResponse{}, err
	}

	s.record(ctx, actor, models.ActionScoreUpdated, score)

	return dto.NewScoreResponse(score), nil
}

func (s *scoreService) Delete(ctx context.Context, scoreID uint, actor ActivityActor) error {
	tracer := otel.Tracer("github.com/escolarhq/notas-api/internal/service/score")
	ctx, span := tracer.Start(ctx, "score.delete")
	span.SetAttributes(attribute.Int64("score.id", int64(scoreID)))
	defer span.End()

	score, err := s.scores.GetByID(ctx, scoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScoreNotFound
		}
		return err
	}

	evaluation, err := s.evaluations.GetByID(ctx, score.EvaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEvaluationNotFound
		}
		return err
	}

	key := evaluation.Key()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.scores.Delete(ctx, scoreID); err != nil {
			return err
		}

		return s.aggregator.Recompute(ctx, score.StudentID, key)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "score_delete_failed")
		return err
	}

	s.record(ctx, actor, models.ActionScoreDeleted, score)

	return nil
}

func (s *scoreService) record(ctx context.Context, actor ActivityActor, action string, score models.Score) {
	if s.activity == nil {
		return
	}

	scoreID := score.ID
	_, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "score",
		EntityID:   &scoreID,
		Metadata: map[string]interface{}{
			"student_id":    score.StudentID,
			"evaluation_id": score.EvaluationID,
			"value":         score.Value,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("score_id", score.ID).Msg("failed to record grading activity")
	}
}
