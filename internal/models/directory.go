package models

import "time"

// Student is a directory entity; the grade engine only reads it to
// validate ids and roles before trusting them.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	Role      string    `gorm:"size:32;not null;default:student" json:"role"`
	Status    string    `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	// RoleStudent marks directory records that may receive scores.
	RoleStudent = "student"
	// RoleTeacher marks directory records that may register scores.
	RoleTeacher = "teacher"
	// RoleAdmin marks directory records with full administrative access.
	RoleAdmin = "admin"
)

const (
	// StudentStatusActive indicates the student is currently enrolled.
	StudentStatusActive = "active"
	// StudentStatusInactive indicates the student left or was withdrawn.
	StudentStatusInactive = "inactive"
)

// IsStudent reports whether the record may be graded.
func (s Student) IsStudent() bool {
	return s.Role == RoleStudent
}

// SchoolYear identifies one academic year.
type SchoolYear struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Active    bool      `gorm:"not null;default:false" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// GradeLevel identifies one grade (e.g. "3rd year") within the school.
type GradeLevel struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:64;not null" json:"name"`
}

// Section identifies one class group within a grade level.
type Section struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	GradeLevelID uint   `gorm:"not null" json:"grade_level_id"`
	Name         string `gorm:"size:32;not null" json:"name"`
}

// Subject identifies one taught subject.
type Subject struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128;not null" json:"name"`
}
