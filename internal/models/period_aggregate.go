package models

import "time"

// PeriodAggregate is the weighted average of a student's scores within
// one (subject, grade, section, year, period) key, rescaled when the
// graded evaluations cover less than the full period weight. Exactly one
// row exists per key; it is derived data, never edited directly.
type PeriodAggregate struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	StudentID           uint      `gorm:"not null;uniqueIndex:idx_aggregates_key" json:"student_id"`
	SubjectID           uint      `gorm:"not null;uniqueIndex:idx_aggregates_key" json:"subject_id"`
	GradeLevelID        uint      `gorm:"not null;uniqueIndex:idx_aggregates_key" json:"grade_level_id"`
	SectionID           uint      `gorm:"not null;uniqueIndex:idx_aggregates_key" json:"section_id"`
	SchoolYearID        uint      `gorm:"not null;uniqueIndex:idx_aggregates_key" json:"school_year_id"`
	Period              int       `gorm:"not null;uniqueIndex:idx_aggregates_key" json:"period"`
	Value               float64   `gorm:"not null" json:"value"`
	PercentageEvaluated float64   `gorm:"not null" json:"percentage_evaluated"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Key returns the aggregation key this row belongs to.
func (a PeriodAggregate) Key() EvaluationKey {
	return EvaluationKey{
		SubjectID:    a.SubjectID,
		GradeLevelID: a.GradeLevelID,
		SectionID:    a.SectionID,
		SchoolYearID: a.SchoolYearID,
		Period:       a.Period,
	}
}
