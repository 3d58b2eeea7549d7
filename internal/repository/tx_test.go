package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/models"
)

func TestTxRunnerRollsBackEverythingOnError(t *testing.T) {
	db := setupTestDB(t)
	runner := NewTxRunner(db)
	scores := NewScoreRepository(db)
	aggregates := NewPeriodAggregateRepository(db)

	boom := errors.New("boom")
	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		score := models.Score{StudentID: 7, EvaluationID: 11, Value: 15}
		if err := scores.Create(ctx, &score); err != nil {
			return err
		}

		aggregate := models.PeriodAggregate{
			StudentID: 7, SubjectID: 1, GradeLevelID: 2, SectionID: 3, SchoolYearID: 4,
			Period: 1, Value: 15, PercentageEvaluated: 100,
		}
		if err := aggregates.Upsert(ctx, &aggregate); err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = scores.GetByStudentAndEvaluation(context.Background(), 7, 11)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound, "the score write must roll back with the batch")

	var count int64
	require.NoError(t, db.Model(&models.PeriodAggregate{}).Count(&count).Error)
	require.Equal(t, int64(0), count, "the aggregate write must roll back with the batch")
}

func TestTxRunnerCommitsOnSuccess(t *testing.T) {
	db := setupTestDB(t)
	runner := NewTxRunner(db)
	scores := NewScoreRepository(db)

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		score := models.Score{StudentID: 7, EvaluationID: 11, Value: 15}
		return scores.Create(ctx, &score)
	})
	require.NoError(t, err)

	stored, err := scores.GetByStudentAndEvaluation(context.Background(), 7, 11)
	require.NoError(t, err)
	require.InDelta(t, 15.0, stored.Value, 0.001)
}

func TestRepositoriesWorkOutsideTransactions(t *testing.T) {
	db := setupTestDB(t)
	scores := NewScoreRepository(db)

	score := models.Score{StudentID: 7, EvaluationID: 11, Value: 12}
	require.NoError(t, scores.Create(context.Background(), &score))
	require.NotZero(t, score.ID)
}
