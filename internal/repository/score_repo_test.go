package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/models"
)

func TestScoreRepositoryEnforcesOneScorePerStudentEvaluation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScoreRepository(db)

	first := models.Score{StudentID: 7, EvaluationID: 11, Value: 15}
	require.NoError(t, repo.Create(context.Background(), &first))

	duplicate := models.Score{StudentID: 7, EvaluationID: 11, Value: 12}
	require.Error(t, repo.Create(context.Background(), &duplicate))
}

func TestScoreRepositoryGetByStudentAndEvaluation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScoreRepository(db)

	score := models.Score{StudentID: 7, EvaluationID: 11, Value: 15, Observations: "oral exam"}
	require.NoError(t, repo.Create(context.Background(), &score))

	found, err := repo.GetByStudentAndEvaluation(context.Background(), 7, 11)
	require.NoError(t, err)
	require.Equal(t, score.ID, found.ID)
	require.Equal(t, "oral exam", found.Observations)

	_, err = repo.GetByStudentAndEvaluation(context.Background(), 7, 99)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestScoreRepositoryListByStudentAndEvaluations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScoreRepository(db)

	for i, value := range []float64{10, 14, 18} {
		score := models.Score{StudentID: 7, EvaluationID: uint(i + 1), Value: value}
		require.NoError(t, repo.Create(context.Background(), &score))
	}
	other := models.Score{StudentID: 8, EvaluationID: 1, Value: 9}
	require.NoError(t, repo.Create(context.Background(), &other))

	scores, err := repo.ListByStudentAndEvaluations(context.Background(), 7, []uint{1, 3})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	for _, score := range scores {
		require.Equal(t, uint(7), score.StudentID)
	}
}

func TestScoreRepositoryUpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScoreRepository(db)

	score := models.Score{StudentID: 7, EvaluationID: 11, Value: 15}
	require.NoError(t, repo.Create(context.Background(), &score))

	score.Value = 17.5
	require.NoError(t, repo.Update(context.Background(), &score))

	found, err := repo.GetByID(context.Background(), score.ID)
	require.NoError(t, err)
	require.InDelta(t, 17.5, found.Value, 0.001)

	require.NoError(t, repo.Delete(context.Background(), score.ID))
	_, err = repo.GetByID(context.Background(), score.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Evaluation{},
		&models.Score{},
		&models.PeriodAggregate{},
		&models.DefinitiveGrade{},
		&models.GradingPolicy{},
	))
	return db
}
