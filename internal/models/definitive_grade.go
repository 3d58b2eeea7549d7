package models

import "time"

// DefinitiveGrade is the year-end grade and pass/fail verdict for a
// student in one subject. Final is nil while any period aggregate is
// missing; a nil final is "incomplete", not a zero.
type DefinitiveGrade struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	StudentID        uint      `gorm:"not null;uniqueIndex:idx_definitive_key" json:"student_id"`
	SubjectID        uint      `gorm:"not null;uniqueIndex:idx_definitive_key" json:"subject_id"`
	SchoolYearID     uint      `gorm:"not null;uniqueIndex:idx_definitive_key" json:"school_year_id"`
	Final            *float64  `json:"final"`
	Approved         bool      `gorm:"not null" json:"approved"`
	NeedsRemediation bool      `gorm:"not null" json:"needs_remediation"`
	RemedialValue    *float64  `json:"remedial_value"`
	Observations     string    `gorm:"type:text" json:"observations"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsComplete reports whether all three period aggregates were present
// when the grade was last computed.
func (d DefinitiveGrade) IsComplete() bool {
	return d.Final != nil
}
