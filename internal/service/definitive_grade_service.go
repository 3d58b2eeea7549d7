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
	"github.com/escolarhq/notas-api/internal/observability"
	"github.com/escolarhq/notas-api/internal/repository"
)

// ErrPolicyNotFound indicates no active grading policy resolves for
// the requested year and grade. The whole computation fails; guessing a
// policy would silently produce wrong grades.
var ErrPolicyNotFound = errors.New("grading policy not found")

const observationIncomplete = "missing one or more period grades"

// DefinitiveGradeService blends a year's three period aggregates into a
// final grade and pass/fail verdict for every (student, subject) pair
// in the requested cohort.
type DefinitiveGradeService interface {
	Compute(ctx context.Context, req dto.DefinitiveComputeRequest, actor ActivityActor) (dto.DefinitiveComputeResponse, error)
}

type definitiveGradeService struct {
	tx         repository.TxRunner
	aggregates repository.PeriodAggregateRepository
	grades     repository.DefinitiveGradeRepository
	policies   repository.GradingPolicyRepository
	students   repository.StudentRepository
	validator  *validator.Validate
	activity   ActivityRecorder
	reports    ReportInvalidator
	logger     zerolog.Logger
}

// NewDefinitiveGradeService constructs the calculator.
func NewDefinitiveGradeService(tx repository.TxRunner, aggregates repository.PeriodAggregateRepository, grades repository.DefinitiveGradeRepository, policies repository.GradingPolicyRepository, students repository.StudentRepository, validate *validator.Validate, activity ActivityRecorder, reports ReportInvalidator, logger zerolog.Logger) DefinitiveGradeService {
	return &definitiveGradeService{
		tx:         tx,
		aggregates: aggregates,
		grades:     grades,
		policies:   policies,
		students:   students,
		validator:  validate,
		activity:   activity,
		reports:    reports,
		logger:     logger.With().Str("component", "definitive_grade_service").Logger(),
	}
}

func (s *definitiveGradeService) Compute(ctx context.Context, req dto.DefinitiveComputeRequest, actor ActivityActor) (dto.DefinitiveComputeResponse, error) {
	tracer := otel.Tracer("github.com/escolarhq/notas-api/internal/service/definitive_grade")
	ctx, span := tracer.Start(ctx, "definitive.compute")
	span.SetAttributes(attribute.Int64("definitive.school_year_id", int64(req.SchoolYearID)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.DefinitiveComputeResponse{}, err
	}

	policy, err := s.policies.Resolve(ctx, req.SchoolYearID, req.GradeLevelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "policy_not_found")
			return dto.DefinitiveComputeResponse{}, ErrPolicyNotFound
		}
		return dto.DefinitiveComputeResponse{}, err
	}

	response := dto.DefinitiveComputeResponse{SchoolYearID: req.SchoolYearID}
	scope := repository.AggregateScope{
		SchoolYearID: req.SchoolYearID,
		GradeLevelID: req.GradeLevelID,
		SectionID:    req.SectionID,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		pairs, err := s.aggregates.StudentSubjectPairs(ctx, scope)
		if err != nil {
			return err
		}

		knownStudents := map[uint]bool{}
		for _, pair := range pairs {
			valid, seen := knownStudents[pair.StudentID]
			if !seen {
				valid = s.studentResolves(ctx, pair.StudentID)
				knownStudents[pair.StudentID] = valid
			}
			if !valid {
				response.Errors = append(response.Errors, dto.DefinitiveComputeError{
					StudentID: pair.StudentID,
					SubjectID: pair.SubjectID,
					Reason:    "student not found in directory",
				})
				continue
			}

			grade, err := s.computePair(ctx, pair, req.SchoolYearID, policy)
			if err != nil {
				return err
			}

			response.Processed = append(response.Processed, dto.NewDefinitiveGradeResponse(grade))
		}

		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "definitive_compute_failed")
		return dto.DefinitiveComputeResponse{}, err
	}

	observability.DefinitiveBatches().Inc()
	if s.reports != nil {
		s.reports.Invalidate(ctx, req.SchoolYearID, req.GradeLevelID, req.SectionID)
	}
	s.record(ctx, actor, req, len(response.Processed), len(response.Errors))

	span.SetAttributes(
		attribute.Int("definitive.processed", len(response.Processed)),
		attribute.Int("definitive.errors", len(response.Errors)),
	)

	return response, nil
}

// computePair writes the definitive grade for one (student, subject)
// and returns the stored row.
func (s *definitiveGradeService) computePair(ctx context.Context, pair repository.StudentSubject, schoolYearID uint, policy models.GradingPolicy) (models.DefinitiveGrade, error) {
	aggregates, err := s.aggregates.ListForStudentSubjectYear(ctx, pair.StudentID, pair.SubjectID, schoolYearID)
	if err != nil {
		return models.DefinitiveGrade{}, err
	}

	byPeriod := map[int]models.PeriodAggregate{}
	for _, aggregate := range aggregates {
		byPeriod[aggregate.Period] = aggregate
	}

	grade := models.DefinitiveGrade{
		StudentID:    pair.StudentID,
		SubjectID:    pair.SubjectID,
		SchoolYearID: schoolYearID,
	}

	if len(byPeriod) < 3 {
		// Incomplete years keep a nil final; a phantom zero would leak
		// into downstream statistics.
		grade.Observations = observationIncomplete
		if err := s.grades.Upsert(ctx, &grade); err != nil {
			return models.DefinitiveGrade{}, err
		}
		return grade, nil
	}

	var final float64
	passedPeriods := 0
	for period := 1; period <= 3; period++ {
		value := byPeriod[period].Value
		final += value * policy.PeriodWeight(period) / 100
		if value >= policy.MinPassingGrade {
			passedPeriods++
		}
	}
	if policy.Round {
		final = roundTo(final, policy.RoundDecimals)
	}

	var approved bool
	switch policy.ApprovalMode {
	case models.ApprovalByPeriodCount:
		approved = passedPeriods >= policy.MinPeriodsRequired
		grade.Observations = fmt.Sprintf("approval by period count: %d of 3 periods at or above %.2f", passedPeriods, policy.MinPassingGrade)
	default:
		approved = final >= policy.MinPassingGrade
		grade.Observations = fmt.Sprintf("approval by average: final %.2f against minimum %.2f", final, policy.MinPassingGrade)
	}

	grade.Final = &final
	grade.Approved = approved
	grade.NeedsRemediation = !approved && policy.RemediationAllowed

	if err := s.grades.Upsert(ctx, &grade); err != nil {
		return models.DefinitiveGrade{}, err
	}

	return grade, nil
}

func (s *definitiveGradeService) studentResolves(ctx context.Context, studentID uint) bool {
	_, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("student directory lookup failed")
		}
		return false
	}
	return true
}

func (s *definitiveGradeService) record(ctx context.Context, actor ActivityActor, req dto.DefinitiveComputeRequest, processed, failed int) {
	if s.activity == nil {
		return
	}

	yearID := req.SchoolYearID
	_, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionDefinitiveComputed,
		EntityType: "school_year",
		EntityID:   &yearID,
		Metadata: map[string]interface{}{
			"processed": processed,
			"errors":    failed,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to record grading activity")
	}
}
