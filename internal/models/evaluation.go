package models

import "time"

// Evaluation is a gradable activity worth a percentage of its period.
// The engine reads evaluations; it never creates or edits them.
type Evaluation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	SubjectID    uint      `gorm:"not null;index" json:"subject_id"`
	GradeLevelID uint      `gorm:"not null" json:"grade_level_id"`
	SectionID    uint      `gorm:"not null" json:"section_id"`
	SchoolYearID uint      `gorm:"not null" json:"school_year_id"`
	Period       int       `gorm:"not null" json:"period"`
	Weight       float64   `gorm:"not null" json:"weight"`
	TeacherID    uint      `gorm:"not null" json:"teacher_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// EvaluationKey groups the evaluations whose scores blend into one
// period aggregate. Period runs 1 to 3.
type EvaluationKey struct {
	SubjectID    uint
	GradeLevelID uint
	SectionID    uint
	SchoolYearID uint
	Period       int
}

// Key returns the aggregation key the evaluation belongs to.
func (e Evaluation) Key() EvaluationKey {
	return EvaluationKey{
		SubjectID:    e.SubjectID,
		GradeLevelID: e.GradeLevelID,
		SectionID:    e.SectionID,
		SchoolYearID: e.SchoolYearID,
		Period:       e.Period,
	}
}
