package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/models"
)

// ScoreRepository defines data operations for individual scores.
type ScoreRepository interface {
	GetByID(ctx context.Context, id uint) (models.Score, error)
	GetByStudentAndEvaluation(ctx context.Context, studentID, evaluationID uint) (models.Score, error)
	ListByStudentAndEvaluations(ctx context.Context, studentID uint, evaluationIDs []uint) ([]models.Score, error)
	Create(ctx context.Context, score *models.Score) error
	Update(ctx context.Context, score *models.Score) error
	Delete(ctx context.Context, id uint) error
}

type scoreRepository struct {
	db *gorm.DB
}

// NewScoreRepository instantiates the repository.
func NewScoreRepository(db *gorm.DB) ScoreRepository {
	return &scoreRepository{db: db}
}

func (r *scoreRepository) GetByID(ctx context.Context, id uint) (models.Score, error) {
	var score models.Score
	if err := dbFor(ctx, r.db).First(&score, id).Error; err != nil {
		return models.Score{}, err
	}

	return score, nil
}

func (r *scoreRepository) GetByStudentAndEvaluation(ctx context.Context, studentID, evaluationID uint) (models.Score, error) {
	var score models.Score
	if err := dbFor(ctx, r.db).
		Where("student_id = ?", studentID).
		Where("evaluation_id = ?", evaluationID).
		First(&score).Error; err != nil {
		return models.Score{}, err
	}

	return score, nil
}

func (r *scoreRepository) ListByStudentAndEvaluations(ctx context.Context, studentID uint, evaluationIDs []uint) ([]models.Score, error) {
	if len(evaluationIDs) == 0 {
		return nil, nil
	}

	var scores []models.Score
	if err := dbFor(ctx, r.db).
		Where("student_id = ?", studentID).
		Where("evaluation_id IN ?", evaluationIDs).
		Order("evaluation_id").
		Find(&scores).Error; err != nil {
		return nil, err
	}

	return scores, nil
}

func (r *scoreRepository) Create(ctx context.Context, score *models.Score) error {
	return dbFor(ctx, r.db).Omit("Evaluation", "Student").Create(score).Error
}

func (r *scoreRepository) Update(ctx context.Context, score *models.Score) error {
	return dbFor(ctx, r.db).Omit("Evaluation", "Student").Save(score).Error
}

func (r *scoreRepository) Delete(ctx context.Context, id uint) error {
	return dbFor(ctx, r.db).Delete(&models.Score{}, id).Error
}
