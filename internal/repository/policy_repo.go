package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/models"
)

// GradingPolicyRepository resolves the active grading policy for a
// school year, preferring a grade-specific policy over the year-wide
// fallback. Policy CRUD is owned by configuration workflows elsewhere.
type GradingPolicyRepository interface {
	Resolve(ctx context.Context, schoolYearID uint, gradeLevelID *uint) (models.GradingPolicy, error)
}

type gradingPolicyRepository struct {
	db *gorm.DB
}

// NewGradingPolicyRepository instantiates the repository.
func NewGradingPolicyRepository(db *gorm.DB) GradingPolicyRepository {
	return &gradingPolicyRepository{db: db}
}

func (r *gradingPolicyRepository) Resolve(ctx context.Context, schoolYearID uint, gradeLevelID *uint) (models.GradingPolicy, error) {
	if gradeLevelID != nil {
		policy, err := r.lookup(ctx, schoolYearID, gradeLevelID)
		if err == nil {
			return policy, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingPolicy{}, err
		}
	}

	return r.lookup(ctx, schoolYearID, nil)
}

func (r *gradingPolicyRepository) lookup(ctx context.Context, schoolYearID uint, gradeLevelID *uint) (models.GradingPolicy, error) {
	query := dbFor(ctx, r.db).
		Where("school_year_id = ?", schoolYearID).
		Where("active = ?", true)

	if gradeLevelID != nil {
		query = query.Where("grade_level_id = ?", *gradeLevelID)
	} else {
		query = query.Where("grade_level_id IS NULL")
	}

	var policy models.GradingPolicy
	if err := query.First(&policy).Error; err != nil {
		return models.GradingPolicy{}, err
	}

	return policy, nil
}
