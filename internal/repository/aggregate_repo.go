package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/escolarhq/notas-api/internal/models"
)

// StudentSubject is one distinct (student, subject) pair holding at
// least one period aggregate in a year.
type StudentSubject struct {
	StudentID uint
	SubjectID uint
}

// AggregateScope narrows a cohort query; nil fields match everything.
type AggregateScope struct {
	SchoolYearID uint
	GradeLevelID *uint
	SectionID    *uint
}

// PeriodAggregateRepository stores derived period aggregates. Writes go
// through Upsert only, keyed by the natural aggregation key.
type PeriodAggregateRepository interface {
	Upsert(ctx context.Context, aggregate *models.PeriodAggregate) error
	Get(ctx context.Context, studentID uint, key models.EvaluationKey) (models.PeriodAggregate, error)
	ListForStudentSubjectYear(ctx context.Context, studentID, subjectID, schoolYearID uint) ([]models.PeriodAggregate, error)
	StudentSubjectPairs(ctx context.Context, scope AggregateScope) ([]StudentSubject, error)
	ListByScope(ctx context.Context, scope AggregateScope) ([]models.PeriodAggregate, error)
}

type periodAggregateRepository struct {
	db *gorm.DB
}

// NewPeriodAggregateRepository instantiates the repository.
func NewPeriodAggregateRepository(db *gorm.DB) PeriodAggregateRepository {
	return &periodAggregateRepository{db: db}
}

func (r *periodAggregateRepository) Upsert(ctx context.Context, aggregate *models.PeriodAggregate) error {
	return dbFor(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "student_id"}, {Name: "subject_id"}, {Name: "grade_level_id"},
			{Name: "section_id"}, {Name: "school_year_id"}, {Name: "period"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"value", "percentage_evaluated", "updated_at"}),
	}).Create(aggregate).Error
}

func (r *periodAggregateRepository) Get(ctx context.Context, studentID uint, key models.EvaluationKey) (models.PeriodAggregate, error) {
	var aggregate models.PeriodAggregate
	if err := dbFor(ctx, r.db).
		Where("student_id = ?", studentID).
		Where("subject_id = ?", key.SubjectID).
		Where("grade_level_id = ?", key.GradeLevelID).
		Where("section_id = ?", key.SectionID).
		Where("school_year_id = ?", key.SchoolYearID).
		Where("period = ?", key.Period).
		First(&aggregate).Error; err != nil {
		return models.PeriodAggregate{}, err
	}

	return aggregate, nil
}

func (r *periodAggregateRepository) ListForStudentSubjectYear(ctx context.Context, studentID, subjectID, schoolYearID uint) ([]models.PeriodAggregate, error) {
	var aggregates []models.PeriodAggregate
	if err := dbFor(ctx, r.db).
		Where("student_id = ?", studentID).
		Where("subject_id = ?", subjectID).
		Where("school_year_id = ?", schoolYearID).
		Order("period").
		Find(&aggregates).Error; err != nil {
		return nil, err
	}

	return aggregates, nil
}

func (r *periodAggregateRepository) StudentSubjectPairs(ctx context.Context, scope AggregateScope) ([]StudentSubject, error) {
	query := r.scoped(ctx, scope).
		Distinct("student_id", "subject_id").
		Order("student_id").Order("subject_id")

	var pairs []StudentSubject
	if err := query.Find(&pairs).Error; err != nil {
		return nil, err
	}

	return pairs, nil
}

func (r *periodAggregateRepository) ListByScope(ctx context.Context, scope AggregateScope) ([]models.PeriodAggregate, error) {
	var aggregates []models.PeriodAggregate
	if err := r.scoped(ctx, scope).
		Order("student_id").Order("subject_id").Order("period").
		Find(&aggregates).Error; err != nil {
		return nil, err
	}

	return aggregates, nil
}

func (r *periodAggregateRepository) scoped(ctx context.Context, scope AggregateScope) *gorm.DB {
	query := dbFor(ctx, r.db).
		Model(&models.PeriodAggregate{}).
		Where("school_year_id = ?", scope.SchoolYearID)

	if scope.GradeLevelID != nil {
		query = query.Where("grade_level_id = ?", *scope.GradeLevelID)
	}

	if scope.SectionID != nil {
		query = query.Where("section_id = ?", *scope.SectionID)
	}

	return query
}
