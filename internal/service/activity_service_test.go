package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/escolarhq/notas-api/internal/dto"
	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	var matched []models.ActivityLog
	for _, entry := range m.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, int64(len(matched)), nil
}

func TestActivityServiceRecordNormalizesFields(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, zerolog.Nop())

	entityID := uint(5)
	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorID:    1,
		ActorRole:  " Teacher ",
		Action:     "Score.Created",
		EntityType: "Score",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			" Value ": 15.5,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "score.created", entry.Action)
	require.Equal(t, "teacher", entry.ActorRole)
	require.Equal(t, "score", entry.EntityType)
	require.Equal(t, 15.5, entry.Metadata["value"])
	require.Len(t, repo.entries, 1)
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, zerolog.Nop())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "score"})
	require.Error(t, err)
}

func TestActivityServiceListFiltersAndPaginates(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, zerolog.Nop())

	for _, action := range []string{models.ActionScoreCreated, models.ActionScoreCreated, models.ActionRemedialRegistered} {
		_, err := svc.Record(context.Background(), ActivityEntry{
			ActorID: 1, ActorRole: "admin", Action: action, EntityType: "score",
		})
		require.NoError(t, err)
	}

	resp, err := svc.List(context.Background(), dto.ActivityListRequest{Action: models.ActionScoreCreated})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	require.Equal(t, int64(2), resp.Pagination.TotalItems)
	require.Equal(t, 1, resp.Pagination.Page)
	require.Equal(t, 20, resp.Pagination.PageSize)
}
