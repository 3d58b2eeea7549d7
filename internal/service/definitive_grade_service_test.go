package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/escolarhq/notas-api/internal/dto"
	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/repository"
)

type fakeCohortRepo struct {
	aggregates []models.PeriodAggregate
}

func (f *fakeCohortRepo) Upsert(ctx context.Context, aggregate *models.PeriodAggregate) error {
	f.aggregates = append(f.aggregates, *aggregate)
	return nil
}

func (f *fakeCohortRepo) Get(ctx context.Context, studentID uint, key models.EvaluationKey) (models.PeriodAggregate, error) {
	return models.PeriodAggregate{}, gorm.ErrRecordNotFound
}

func (f *fakeCohortRepo) ListForStudentSubjectYear(ctx context.Context, studentID, subjectID, schoolYearID uint) ([]models.PeriodAggregate, error) {
	var matched []models.PeriodAggregate
	for _, aggregate := range f.aggregates {
		if aggregate.StudentID == studentID && aggregate.SubjectID == subjectID && aggregate.SchoolYearID == schoolYearID {
			matched = append(matched, aggregate)
		}
	}
	return matched, nil
}

func (f *fakeCohortRepo) StudentSubjectPairs(ctx context.Context, scope repository.AggregateScope) ([]repository.StudentSubject, error) {
	seen := map[repository.StudentSubject]bool{}
	var pairs []repository.StudentSubject
	for _, aggregate := range f.aggregates {
		if aggregate.SchoolYearID != scope.SchoolYearID {
			continue
		}
		pair := repository.StudentSubject{StudentID: aggregate.StudentID, SubjectID: aggregate.SubjectID}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs, nil
}

func (f *fakeCohortRepo) ListByScope(ctx context.Context, scope repository.AggregateScope) ([]models.PeriodAggregate, error) {
	return f.aggregates, nil
}

type memDefinitiveRepo struct {
	grades map[[3]uint]models.DefinitiveGrade
	nextID uint
}

func definitiveKey(grade models.DefinitiveGrade) [3]uint {
	return [3]uint{grade.StudentID, grade.SubjectID, grade.SchoolYearID}
}

func (f *memDefinitiveRepo) Upsert(ctx context.Context, grade *models.DefinitiveGrade) error {
	if f.grades == nil {
		f.grades = map[[3]uint]models.DefinitiveGrade{}
	}
	key := definitiveKey(*grade)
	if existing, ok := f.grades[key]; ok {
		grade.ID = existing.ID
	} else {
		f.nextID++
		grade.ID = f.nextID
	}
	f.grades[key] = *grade
	return nil
}

func (f *memDefinitiveRepo) GetByKey(ctx context.Context, studentID, subjectID, schoolYearID uint) (models.DefinitiveGrade, error) {
	grade, ok := f.grades[[3]uint{studentID, subjectID, schoolYearID}]
	if !ok {
		return models.DefinitiveGrade{}, gorm.ErrRecordNotFound
	}
	return grade, nil
}

func (f *memDefinitiveRepo) Update(ctx context.Context, grade *models.DefinitiveGrade) error {
	f.grades[definitiveKey(*grade)] = *grade
	return nil
}

func (f *memDefinitiveRepo) ListByScope(ctx context.Context, scope repository.AggregateScope) ([]models.DefinitiveGrade, error) {
	var grades []models.DefinitiveGrade
	for _, grade := range f.grades {
		if grade.SchoolYearID == scope.SchoolYearID {
			grades = append(grades, grade)
		}
	}
	return grades, nil
}

type stubPolicyRepo struct {
	policy models.GradingPolicy
	err    error
}

func (f *stubPolicyRepo) Resolve(ctx context.Context, schoolYearID uint, gradeLevelID *uint) (models.GradingPolicy, error) {
	if f.err != nil {
		return models.GradingPolicy{}, f.err
	}
	return f.policy, nil
}

func yearAggregates(studentID uint, values ...float64) []models.PeriodAggregate {
	aggregates := make([]models.PeriodAggregate, 0, len(values))
	for i, value := range values {
		aggregates = append(aggregates, models.PeriodAggregate{
			StudentID: studentID, SubjectID: 1, GradeLevelID: 2, SectionID: 3, SchoolYearID: 4,
			Period: i + 1, Value: value, PercentageEvaluated: 100,
		})
	}
	return aggregates
}

func equalThirdsPolicy() models.GradingPolicy {
	third := 100.0 / 3
	return models.GradingPolicy{
		ID: 1, SchoolYearID: 4,
		WeightPeriod1: third, WeightPeriod2: third, WeightPeriod3: third,
		MinPassingGrade: 10, Round: true, RoundDecimals: 2,
		ApprovalMode: models.ApprovalByAverage, RemediationAllowed: true, Active: true,
	}
}

func newDefinitiveFixture(aggregates []models.PeriodAggregate, policy models.GradingPolicy, policyErr error) (*memDefinitiveRepo, DefinitiveGradeService) {
	cohort := &fakeCohortRepo{aggregates: aggregates}
	grades := &memDefinitiveRepo{}
	policies := &stubPolicyRepo{policy: policy, err: policyErr}
	students := &stubStudentRepo{students: map[uint]models.Student{
		7: {ID: 7, Role: models.RoleStudent},
		8: {ID: 8, Role: models.RoleStudent},
	}}
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewDefinitiveGradeService(passthroughTx{}, cohort, grades, policies, students, validate, nil, nil, zerolog.Nop())
	return grades, svc
}

func TestDefinitiveComputeByAverage(t *testing.T) {
	grades, svc := newDefinitiveFixture(yearAggregates(7, 12, 8, 13), equalThirdsPolicy(), nil)

	resp, err := svc.Compute(context.Background(), dto.DefinitiveComputeRequest{SchoolYearID: 4}, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.Empty(t, resp.Errors)
	require.Len(t, resp.Processed, 1)

	stored, err := grades.GetByKey(context.Background(), 7, 1, 4)
	require.NoError(t, err)
	require.NotNil(t, stored.Final)
	require.InDelta(t, 11.0, *stored.Final, 0.001)
	require.True(t, stored.Approved)
	require.False(t, stored.NeedsRemediation)
}

func TestDefinitiveComputeByPeriodCount(t *testing.T) {
	policy := equalThirdsPolicy()
	policy.ApprovalMode = models.ApprovalByPeriodCount
	policy.MinPeriodsRequired = 2

	grades, svc := newDefinitiveFixture(yearAggregates(7, 12, 8, 13), policy, nil)

	_, err := svc.Compute(context.Background(), dto.DefinitiveComputeRequest{SchoolYearID: 4}, ActivityActor{ID: 1})
	require.NoError(t, err)

	stored, err := grades.GetByKey(context.Background(), 7, 1, 4)
	require.NoError(t, err)
	require.True(t, stored.Approved, "periods 1 and 3 pass, meeting the 2-period requirement")
}

func TestDefinitiveComputeFailingStudentNeedsRemediation(t *testing.T) {
	grades, svc := newDefinitiveFixture(yearAggregates(7, 8, 9, 9.5), equalThirdsPolicy(), nil)

	_, err := svc.Compute(context.Background(), dto.DefinitiveComputeRequest{SchoolYearID: 4}, ActivityActor{ID: 1})
	require.NoError(t, err)

	stored, err := grades.GetByKey(context.Background(), 7, 1, 4)
	require.NoError(t, err)
	require.False(t, stored.Approved)
	require.True(t, stored.NeedsRemediation)
}

func TestDefinitiveComputeMissingPeriodWithholdsFinal(t *testing.T) {
	grades, svc := newDefinitiveFixture(yearAggregates(7, 12, 14), equalThirdsPolicy(), nil)

	resp, err := svc.Compute(context.Background(), dto.DefinitiveComputeRequest{SchoolYearID: 4}, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.Len(t, resp.Processed, 1)

	stored, err := grades.GetByKey(context.Background(), 7, 1, 4)
	require.NoError(t, err)
	require.Nil(t, stored.Final, "incomplete years must not receive a numeric final")
	require.False(t, stored.Approved)
	require.False(t, stored.NeedsRemediation)
	require.Equal(t, "missing one or more period grades", stored.Observations)
}

func TestDefinitiveComputePolicyMissingFailsWholeCall(t *testing.T) {
	_, svc := newDefinitiveFixture(yearAggregates(7, 12, 8, 13), models.GradingPolicy{}, gorm.ErrRecordNotFound)

	_, err := svc.Compute(context.Background(), dto.DefinitiveComputeRequest{SchoolYearID: 4}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestDefinitiveComputeCollectsUnknownStudents(t *testing.T) {
	aggregates := append(yearAggregates(7, 12, 8, 13), models.PeriodAggregate{
		StudentID: 99, SubjectID: 1, GradeLevelID: 2, SectionID: 3, SchoolYearID: 4, Period: 1, Value: 10, PercentageEvaluated: 100,
	})
	grades, svc := newDefinitiveFixture(aggregates, equalThirdsPolicy(), nil)

	resp, err := svc.Compute(context.Background(), dto.DefinitiveComputeRequest{SchoolYearID: 4}, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.Len(t, resp.Processed, 1)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, uint(99), resp.Errors[0].StudentID)

	_, err = grades.GetByKey(context.Background(), 99, 1, 4)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
