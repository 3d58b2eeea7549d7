package dto

import (
	"time"

	"github.com/escolarhq/notas-api/internal/models"
)

// DefinitiveComputeRequest selects the cohort for a definitive grade
// run. Grade level and section only narrow the student population; when
// both are omitted every student holding an aggregate in the year is
// processed.
type DefinitiveComputeRequest struct {
	SchoolYearID uint  `json:"school_year_id" validate:"required,gt=0"`
	GradeLevelID *uint `json:"grade_level_id" validate:"omitempty,gt=0"`
	SectionID    *uint `json:"section_id" validate:"omitempty,gt=0"`
}

// DefinitiveGradeResponse is the API shape of a year-end grade.
type DefinitiveGradeResponse struct {
	ID               uint      `json:"id"`
	StudentID        uint      `json:"student_id"`
	SubjectID        uint      `json:"subject_id"`
	SchoolYearID     uint      `json:"school_year_id"`
	Final            *float64  `json:"final"`
	Approved         bool      `json:"approved"`
	NeedsRemediation bool      `json:"needs_remediation"`
	RemedialValue    *float64  `json:"remedial_value"`
	Observations     string    `json:"observations"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewDefinitiveGradeResponse maps a definitive grade model to its API
// shape.
func NewDefinitiveGradeResponse(grade models.DefinitiveGrade) DefinitiveGradeResponse {
	return DefinitiveGradeResponse{
		ID:               grade.ID,
		StudentID:        grade.StudentID,
		SubjectID:        grade.SubjectID,
		SchoolYearID:     grade.SchoolYearID,
		Final:            grade.Final,
		Approved:         grade.Approved,
		NeedsRemediation: grade.NeedsRemediation,
		RemedialValue:    grade.RemedialValue,
		Observations:     grade.Observations,
		UpdatedAt:        grade.UpdatedAt,
	}
}

// DefinitiveComputeError is one (student, subject) pair the calculator
// skipped; the rest of the run still completes.
type DefinitiveComputeError struct {
	StudentID uint   `json:"student_id"`
	SubjectID uint   `json:"subject_id"`
	Reason    string `json:"reason"`
}

// DefinitiveComputeResponse reports a full calculator run.
type DefinitiveComputeResponse struct {
	SchoolYearID uint                      `json:"school_year_id"`
	Processed    []DefinitiveGradeResponse `json:"processed"`
	Errors       []DefinitiveComputeError  `json:"errors"`
}

// RemedialRequest registers a remedial evaluation result.
type RemedialRequest struct {
	StudentID    uint    `json:"student_id" validate:"required,gt=0"`
	SubjectID    uint    `json:"subject_id" validate:"required,gt=0"`
	SchoolYearID uint    `json:"school_year_id" validate:"required,gt=0"`
	Value        float64 `json:"value"`
}
