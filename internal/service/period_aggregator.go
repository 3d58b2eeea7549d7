package service

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/observability"
	"github.com/escolarhq/notas-api/internal/repository"
)

// PeriodAggregator recomputes the stored period aggregate for one
// student within one aggregation key. Every score mutation calls
// Recompute before its transaction commits; that cascade is a
// postcondition of the score API, not an optional hook.
type PeriodAggregator interface {
	Recompute(ctx context.Context, studentID uint, key models.EvaluationKey) error
}

type periodAggregator struct {
	evaluations repository.EvaluationRepository
	scores      repository.ScoreRepository
	aggregates  repository.PeriodAggregateRepository
	logger      zerolog.Logger
}

// NewPeriodAggregator constructs the aggregator.
func NewPeriodAggregator(evaluations repository.EvaluationRepository, scores repository.ScoreRepository, aggregates repository.PeriodAggregateRepository, logger zerolog.Logger) PeriodAggregator {
	return &periodAggregator{
		evaluations: evaluations,
		scores:      scores,
		aggregates:  aggregates,
		logger:      logger.With().Str("component", "period_aggregator").Logger(),
	}
}

// Recompute is idempotent: with unchanged scores and evaluations it
// stores the identical value again, so retries are safe.
func (a *periodAggregator) Recompute(ctx context.Context, studentID uint, key models.EvaluationKey) error {
	evaluations, err := a.evaluations.ListByKey(ctx, key)
	if err != nil {
		return err
	}

	if len(evaluations) == 0 {
		return nil
	}

	evaluationIDs := make([]uint, 0, len(evaluations))
	weightByEvaluation := make(map[uint]float64, len(evaluations))
	for _, evaluation := range evaluations {
		evaluationIDs = append(evaluationIDs, evaluation.ID)
		weightByEvaluation[evaluation.ID] = evaluation.Weight
	}

	scores, err := a.scores.ListByStudentAndEvaluations(ctx, studentID, evaluationIDs)
	if err != nil {
		return err
	}

	// No scores means "not yet evaluated"; storing a zero here would be
	// indistinguishable from a student who actually scored zero.
	if len(scores) == 0 {
		return nil
	}

	var raw, evaluatedWeight float64
	for _, score := range scores {
		weight := weightByEvaluation[score.EvaluationID]
		raw += score.Value * weight / 100
		evaluatedWeight += weight
	}

	if evaluatedWeight == 0 {
		return nil
	}

	value := raw
	if evaluatedWeight != 100 {
		// Grade what has been administered so far instead of counting
		// ungraded evaluations as zeros.
		value = raw * 100 / evaluatedWeight
	}
	value = roundTo(value, 2)

	aggregate := models.PeriodAggregate{
		StudentID:           studentID,
		SubjectID:           key.SubjectID,
		GradeLevelID:        key.GradeLevelID,
		SectionID:           key.SectionID,
		SchoolYearID:        key.SchoolYearID,
		Period:              key.Period,
		Value:               value,
		PercentageEvaluated: evaluatedWeight,
	}

	if err := a.aggregates.Upsert(ctx, &aggregate); err != nil {
		return err
	}

	observability.PeriodRecomputes().Inc()
	a.logger.Debug().
		Uint("student_id", studentID).
		Uint("subject_id", key.SubjectID).
		Int("period", key.Period).
		Float64("value", value).
		Float64("percentage_evaluated", evaluatedWeight).
		Msg("period aggregate recomputed")

	return nil
}

// roundTo rounds half away from zero at the given decimal count.
func roundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}
