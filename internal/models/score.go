package models

import "time"

// ScoreMin and ScoreMax bound every stored score and remedial value.
const (
	ScoreMin = 0.0
	ScoreMax = 20.0
)

// Score records the value a student obtained on one evaluation.
// At most one score exists per (student, evaluation) pair.
type Score struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	StudentID    uint       `gorm:"not null;uniqueIndex:idx_scores_student_evaluation" json:"student_id"`
	EvaluationID uint       `gorm:"not null;uniqueIndex:idx_scores_student_evaluation" json:"evaluation_id"`
	Value        float64    `gorm:"not null" json:"value"`
	Observations string     `gorm:"type:text" json:"observations"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Evaluation   Evaluation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"evaluation"`
	Student      Student    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// InScoreRange reports whether a value fits the 0-20 grading scale.
func InScoreRange(value float64) bool {
	return value >= ScoreMin && value <= ScoreMax
}
