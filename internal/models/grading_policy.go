package models

// Approval modes for the definitive grade verdict.
const (
	// ApprovalByAverage passes a student when the blended final meets
	// the minimum passing grade.
	ApprovalByAverage = "by-average"
	// ApprovalByPeriodCount passes a student when enough individual
	// periods meet the minimum passing grade, regardless of the average.
	ApprovalByPeriodCount = "by-period-count"
)

// GradingPolicy is external configuration resolved per school year,
// optionally narrowed to one grade level. The engine reads policies;
// their CRUD lives elsewhere.
type GradingPolicy struct {
	ID                 uint    `gorm:"primaryKey" json:"id"`
	SchoolYearID       uint    `gorm:"not null;index" json:"school_year_id"`
	GradeLevelID       *uint   `gorm:"index" json:"grade_level_id"`
	WeightPeriod1      float64 `gorm:"not null" json:"weight_period_1"`
	WeightPeriod2      float64 `gorm:"not null" json:"weight_period_2"`
	WeightPeriod3      float64 `gorm:"not null" json:"weight_period_3"`
	MinPassingGrade    float64 `gorm:"not null" json:"min_passing_grade"`
	Round              bool    `gorm:"not null" json:"round"`
	RoundDecimals      int     `gorm:"not null;default:2" json:"round_decimals"`
	ApprovalMode       string  `gorm:"size:32;not null" json:"approval_mode"`
	MinPeriodsRequired int     `gorm:"not null;default:2" json:"min_periods_required"`
	RemediationAllowed bool    `gorm:"not null" json:"remediation_allowed"`
	Active             bool    `gorm:"not null;default:true" json:"active"`
}

// PeriodWeight returns the blend weight for periods 1 to 3.
func (p GradingPolicy) PeriodWeight(period int) float64 {
	switch period {
	case 1:
		return p.WeightPeriod1
	case 2:
		return p.WeightPeriod2
	case 3:
		return p.WeightPeriod3
	default:
		return 0
	}
}
