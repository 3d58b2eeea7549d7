package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/escolarhq/notas-api/internal/models"
)

// DefinitiveGradeRepository stores year-end grades. The calculator
// overwrites rows via Upsert; remediation updates a single row in place.
type DefinitiveGradeRepository interface {
	Upsert(ctx context.Context, grade *models.DefinitiveGrade) error
	GetByKey(ctx context.Context, studentID, subjectID, schoolYearID uint) (models.DefinitiveGrade, error)
	Update(ctx context.Context, grade *models.DefinitiveGrade) error
	ListByScope(ctx context.Context, scope AggregateScope) ([]models.DefinitiveGrade, error)
}

type definitiveGradeRepository struct {
	db *gorm.DB
}

// NewDefinitiveGradeRepository instantiates the repository.
func NewDefinitiveGradeRepository(db *gorm.DB) DefinitiveGradeRepository {
	return &definitiveGradeRepository{db: db}
}

func (r *definitiveGradeRepository) Upsert(ctx context.Context, grade *models.DefinitiveGrade) error {
	return dbFor(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "student_id"}, {Name: "subject_id"}, {Name: "school_year_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"final", "approved", "needs_remediation", "remedial_value", "observations", "updated_at",
		}),
	}).Create(grade).Error
}

func (r *definitiveGradeRepository) GetByKey(ctx context.Context, studentID, subjectID, schoolYearID uint) (models.DefinitiveGrade, error) {
	var grade models.DefinitiveGrade
	if err := dbFor(ctx, r.db).
		Where("student_id = ?", studentID).
		Where("subject_id = ?", subjectID).
		Where("school_year_id = ?", schoolYearID).
		First(&grade).Error; err != nil {
		return models.DefinitiveGrade{}, err
	}

	return grade, nil
}

func (r *definitiveGradeRepository) Update(ctx context.Context, grade *models.DefinitiveGrade) error {
	return dbFor(ctx, r.db).Save(grade).Error
}

func (r *definitiveGradeRepository) ListByScope(ctx context.Context, scope AggregateScope) ([]models.DefinitiveGrade, error) {
	query := dbFor(ctx, r.db).
		Model(&models.DefinitiveGrade{}).
		Where("school_year_id = ?", scope.SchoolYearID)

	// Grade and section are not part of the definitive key; narrow via
	// the students that hold aggregates in the requested scope.
	if scope.GradeLevelID != nil || scope.SectionID != nil {
		sub := dbFor(ctx, r.db).
			Model(&models.PeriodAggregate{}).
			Select("DISTINCT student_id").
			Where("school_year_id = ?", scope.SchoolYearID)
		if scope.GradeLevelID != nil {
			sub = sub.Where("grade_level_id = ?", *scope.GradeLevelID)
		}
		if scope.SectionID != nil {
			sub = sub.Where("section_id = ?", *scope.SectionID)
		}
		query = query.Where("student_id IN (?)", sub)
	}

	var grades []models.DefinitiveGrade
	if err := query.
		Order("student_id").Order("subject_id").
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}
