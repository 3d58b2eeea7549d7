package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/repository"
)

type countingAggregateRepo struct {
	fakeCohortRepo
	listCalls int
}

func (f *countingAggregateRepo) ListByScope(ctx context.Context, scope repository.AggregateScope) ([]models.PeriodAggregate, error) {
	f.listCalls++
	return f.fakeCohortRepo.ListByScope(ctx, scope)
}

func newReportFixture(t *testing.T) (*countingAggregateRepo, *redis.Client, ReportService) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	final := 12.5
	aggregates := &countingAggregateRepo{fakeCohortRepo: fakeCohortRepo{
		aggregates: yearAggregates(7, 12, 11, 14.5),
	}}
	grades := &memDefinitiveRepo{grades: map[[3]uint]models.DefinitiveGrade{
		{7, 1, 4}: {ID: 1, StudentID: 7, SubjectID: 1, SchoolYearID: 4, Final: &final, Approved: true},
	}}

	svc := NewReportService(aggregates, grades, client, time.Minute, zerolog.Nop())
	return aggregates, client, svc
}

func TestGradebookReportMergesAggregatesAndGrades(t *testing.T) {
	_, _, svc := newReportFixture(t)

	report, err := svc.GetGradebook(context.Background(), 4, nil, nil)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)

	entry := report.Entries[0]
	require.Equal(t, uint(7), entry.StudentID)
	require.NotNil(t, entry.PeriodValues[0])
	require.InDelta(t, 12.0, *entry.PeriodValues[0], 0.001)
	require.NotNil(t, entry.PeriodValues[2])
	require.InDelta(t, 14.5, *entry.PeriodValues[2], 0.001)
	require.NotNil(t, entry.Final)
	require.InDelta(t, 12.5, *entry.Final, 0.001)
	require.NotNil(t, entry.Approved)
	require.True(t, *entry.Approved)
}

func TestGradebookReportServesSecondReadFromCache(t *testing.T) {
	aggregates, _, svc := newReportFixture(t)

	_, err := svc.GetGradebook(context.Background(), 4, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, aggregates.listCalls)

	_, err = svc.GetGradebook(context.Background(), 4, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, aggregates.listCalls, "second read must come from the cache")
}

func TestGradebookReportInvalidateForcesRebuild(t *testing.T) {
	aggregates, client, svc := newReportFixture(t)

	_, err := svc.GetGradebook(context.Background(), 4, nil, nil)
	require.NoError(t, err)

	svc.Invalidate(context.Background(), 4, nil, nil)
	require.ErrorIs(t, client.Get(context.Background(), "gradebook:4:0:0").Err(), redis.Nil)

	_, err = svc.GetGradebook(context.Background(), 4, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, aggregates.listCalls)
}

func TestGradebookReportWorksWithoutCache(t *testing.T) {
	final := 9.0
	aggregates := &countingAggregateRepo{fakeCohortRepo: fakeCohortRepo{
		aggregates: yearAggregates(7, 8, 9, 10),
	}}
	grades := &memDefinitiveRepo{grades: map[[3]uint]models.DefinitiveGrade{
		{7, 1, 4}: {ID: 1, StudentID: 7, SubjectID: 1, SchoolYearID: 4, Final: &final, Approved: false, NeedsRemediation: true},
	}}

	svc := NewReportService(aggregates, grades, nil, 0, zerolog.Nop())

	report, err := svc.GetGradebook(context.Background(), 4, nil, nil)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	require.NotNil(t, report.Entries[0].NeedsRemediation)
	require.True(t, *report.Entries[0].NeedsRemediation)
}
