package dto

import (
	"time"

	"github.com/escolarhq/notas-api/internal/models"
)

// ScoreCreateRequest registers a single score for one evaluation.
type ScoreCreateRequest struct {
	StudentID    uint    `json:"student_id" validate:"required,gt=0"`
	EvaluationID uint    `json:"evaluation_id" validate:"required,gt=0"`
	Value        float64 `json:"value"`
	Observations string  `json:"observations" validate:"omitempty,max=2000"`
}

// ScoreUpdateRequest modifies an existing score; nil fields are left
// unchanged.
type ScoreUpdateRequest struct {
	Value        *float64 `json:"value"`
	Observations *string  `json:"observations" validate:"omitempty,max=2000"`
}

// ScoreResponse is returned to API clients after score mutations.
type ScoreResponse struct {
	ID           uint      `json:"id"`
	StudentID    uint      `json:"student_id"`
	EvaluationID uint      `json:"evaluation_id"`
	Value        float64   `json:"value"`
	Observations string    `json:"observations"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewScoreResponse maps a score model to its API shape.
func NewScoreResponse(score models.Score) ScoreResponse {
	return ScoreResponse{
		ID:           score.ID,
		StudentID:    score.StudentID,
		EvaluationID: score.EvaluationID,
		Value:        score.Value,
		Observations: score.Observations,
		CreatedAt:    score.CreatedAt,
		UpdatedAt:    score.UpdatedAt,
	}
}

// BatchScoreItem is one student's entry in a batch registration.
type BatchScoreItem struct {
	StudentID    uint    `json:"student_id" validate:"required,gt=0"`
	Value        float64 `json:"value"`
	Observations string  `json:"observations" validate:"omitempty,max=2000"`
}

// BatchScoreRequest registers or updates many scores for one evaluation.
type BatchScoreRequest struct {
	Items []BatchScoreItem `json:"items" validate:"required,min=1,dive"`
}

// Batch item outcomes.
const (
	BatchItemCreated = "created"
	BatchItemUpdated = "updated"
)

// BatchScoreResult is one successfully registered item.
type BatchScoreResult struct {
	StudentID uint    `json:"student_id"`
	ScoreID   uint    `json:"score_id"`
	Value     float64 `json:"value"`
	Status    string  `json:"status"`
}

// BatchScoreError is one rejected item. A non-empty error list is part
// of the normal partial-success contract, not a call failure.
type BatchScoreError struct {
	StudentID uint   `json:"student_id"`
	Reason    string `json:"reason"`
}

// BatchScoreResponse carries both lists so callers can see exactly
// which students still need attention.
type BatchScoreResponse struct {
	EvaluationID uint               `json:"evaluation_id"`
	Results      []BatchScoreResult `json:"results"`
	Errors       []BatchScoreError  `json:"errors"`
}
