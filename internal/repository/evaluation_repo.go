package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/escolarhq/notas-api/internal/models"
)

// EvaluationRepository reads the evaluation directory. Evaluations are
// owned by planning workflows elsewhere; the engine never writes them.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	ListByKey(ctx context.Context, key models.EvaluationKey) ([]models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := dbFor(ctx, r.db).First(&evaluation, id).Error; err != nil {
		return models.Evaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) ListByKey(ctx context.Context, key models.EvaluationKey) ([]models.Evaluation, error) {
	query := dbFor(ctx, r.db).
		Where("subject_id = ?", key.SubjectID).
		Where("grade_level_id = ?", key.GradeLevelID).
		Where("section_id = ?", key.SectionID).
		Where("school_year_id = ?", key.SchoolYearID).
		Where("period = ?", key.Period).
		Order("id")

	// Serializes concurrent recomputes of the same aggregation key.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var evaluations []models.Evaluation
	if err := query.Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}
