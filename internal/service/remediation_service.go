package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/dto"
	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/repository"
)

// ErrDefinitiveNotFound indicates no definitive grade exists for the
// requested (student, subject, year).
var ErrDefinitiveNotFound = errors.New("definitive grade not found")

// ErrNotEligible indicates the definitive grade is not marked as
// needing remediation.
var ErrNotEligible = errors.New("student is not eligible for remediation")

// RemediationService records remedial evaluation results. The remedial
// value overrides the pass/fail verdict only; the numeric final keeps
// the originally computed value.
type RemediationService interface {
	RegisterRemedial(ctx context.Context, req dto.RemedialRequest, actor ActivityActor) (dto.DefinitiveGradeResponse, error)
}

type remediationService struct {
	tx        repository.TxRunner
	grades    repository.DefinitiveGradeRepository
	policies  repository.GradingPolicyRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewRemediationService constructs the remediation registrar.
func NewRemediationService(tx repository.TxRunner, grades repository.DefinitiveGradeRepository, policies repository.GradingPolicyRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) RemediationService {
	return &remediationService{
		tx:        tx,
		grades:    grades,
		policies:  policies,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "remediation_service").Logger(),
	}
}

func (s *remediationService) RegisterRemedial(ctx context.Context, req dto.RemedialRequest, actor ActivityActor) (dto.DefinitiveGradeResponse, error) {
	tracer := otel.Tracer("github.com/escolarhq/notas-api/internal/service/remediation")
	ctx, span := tracer.Start(ctx, "remedial.register")
	span.SetAttributes(
		attribute.Int64("remedial.student_id", int64(req.StudentID)),
		attribute.Int64("remedial.subject_id", int64(req.SubjectID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.DefinitiveGradeResponse{}, err
	}

	if !models.InScoreRange(req.Value) {
		return dto.DefinitiveGradeResponse{}, ErrScoreOutOfRange
	}

	policy, err := s.policies.Resolve(ctx, req.SchoolYearID, nil)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "policy_not_found")
			return dto.DefinitiveGradeResponse{}, ErrPolicyNotFound
		}
		return dto.DefinitiveGradeResponse{}, err
	}

	var grade models.DefinitiveGrade
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		grade, err = s.grades.GetByKey(ctx, req.StudentID, req.SubjectID, req.SchoolYearID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDefinitiveNotFound
			}
			return err
		}

		if !grade.NeedsRemediation {
			return ErrNotEligible
		}

		approved := req.Value >= policy.MinPassingGrade
		value := req.Value
		grade.RemedialValue = &value
		grade.Approved = approved

		verdict := "not approved"
		if approved {
			verdict = "approved"
		}
		note := fmt.Sprintf("remedial evaluation registered: %.2f, %s", req.Value, verdict)
		if grade.Observations != "" {
			grade.Observations = grade.Observations + "; " + note
		} else {
			grade.Observations = note
		}

		return s.grades.Update(ctx, &grade)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remedial_register_failed")
		return dto.DefinitiveGradeResponse{}, err
	}

	s.record(ctx, actor, grade, req.Value)
	span.SetAttributes(attribute.Bool("remedial.approved", grade.Approved))

	return dto.NewDefinitiveGradeResponse(grade), nil
}

func (s *remediationService) record(ctx context.Context, actor ActivityActor, grade models.DefinitiveGrade, value float64) {
	if s.activity == nil {
		return
	}

	gradeID := grade.ID
	_, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionRemedialRegistered,
		EntityType: "definitive_grade",
		EntityID:   &gradeID,
		Metadata: map[string]interface{}{
			"student_id": grade.StudentID,
			"subject_id": grade.SubjectID,
			"value":      value,
			"approved":   grade.Approved,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to record grading activity")
	}
}
