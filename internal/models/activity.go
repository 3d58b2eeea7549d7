package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable grading events: who changed which
// score or grade, and with what outcome.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Grading actions recorded in the activity log.
const (
	ActionScoreCreated       = "score.created"
	ActionScoreUpdated       = "score.updated"
	ActionScoreDeleted       = "score.deleted"
	ActionBatchRegistered    = "score.batch_registered"
	ActionDefinitiveComputed = "definitive.computed"
	ActionRemedialRegistered = "definitive.remedial_registered"
)
