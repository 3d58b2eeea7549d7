package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/models"
)

func TestGradingPolicyRepositoryPrefersGradeSpecificPolicy(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradingPolicyRepository(db)

	grade := uint(2)
	yearWide := models.GradingPolicy{SchoolYearID: 4, MinPassingGrade: 10, ApprovalMode: models.ApprovalByAverage, Active: true}
	gradeSpecific := models.GradingPolicy{SchoolYearID: 4, GradeLevelID: &grade, MinPassingGrade: 12, ApprovalMode: models.ApprovalByAverage, Active: true}
	require.NoError(t, db.Create(&yearWide).Error)
	require.NoError(t, db.Create(&gradeSpecific).Error)

	policy, err := repo.Resolve(context.Background(), 4, &grade)
	require.NoError(t, err)
	require.InDelta(t, 12.0, policy.MinPassingGrade, 0.001)
}

func TestGradingPolicyRepositoryFallsBackToYearWidePolicy(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradingPolicyRepository(db)

	yearWide := models.GradingPolicy{SchoolYearID: 4, MinPassingGrade: 10, ApprovalMode: models.ApprovalByAverage, Active: true}
	require.NoError(t, db.Create(&yearWide).Error)

	grade := uint(2)
	policy, err := repo.Resolve(context.Background(), 4, &grade)
	require.NoError(t, err)
	require.InDelta(t, 10.0, policy.MinPassingGrade, 0.001)

	policy, err = repo.Resolve(context.Background(), 4, nil)
	require.NoError(t, err)
	require.InDelta(t, 10.0, policy.MinPassingGrade, 0.001)
}

func TestGradingPolicyRepositoryIgnoresInactivePolicies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradingPolicyRepository(db)

	retired := models.GradingPolicy{SchoolYearID: 4, MinPassingGrade: 9.5, ApprovalMode: models.ApprovalByAverage}
	require.NoError(t, db.Create(&retired).Error)
	// gorm skips zero-value fields carrying a column default, so the
	// flag has to be cleared explicitly.
	require.NoError(t, db.Model(&retired).Update("active", false).Error)

	_, err := repo.Resolve(context.Background(), 4, nil)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGradingPolicyRepositoryMissingYear(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradingPolicyRepository(db)

	_, err := repo.Resolve(context.Background(), 99, nil)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
