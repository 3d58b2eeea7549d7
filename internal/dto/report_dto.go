package dto

// GradebookEntry summarizes one student's standing in one subject:
// the three period aggregates (nil when not yet evaluated) and the
// year-end verdict, when computed.
type GradebookEntry struct {
	StudentID        uint        `json:"student_id"`
	SubjectID        uint        `json:"subject_id"`
	PeriodValues     [3]*float64 `json:"period_values"`
	Final            *float64    `json:"final"`
	Approved         *bool       `json:"approved"`
	NeedsRemediation *bool       `json:"needs_remediation"`
}

// GradebookReport is the cached cohort-level view consumed by
// dashboards and report cards.
type GradebookReport struct {
	SchoolYearID uint             `json:"school_year_id"`
	GradeLevelID *uint            `json:"grade_level_id"`
	SectionID    *uint            `json:"section_id"`
	Entries      []GradebookEntry `json:"entries"`
}
