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
)

func newRemediationFixture(grade *models.DefinitiveGrade, policyErr error) (*memDefinitiveRepo, RemediationService) {
	grades := &memDefinitiveRepo{grades: map[[3]uint]models.DefinitiveGrade{}}
	if grade != nil {
		grades.grades[definitiveKey(*grade)] = *grade
	}
	policies := &stubPolicyRepo{policy: equalThirdsPolicy(), err: policyErr}
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewRemediationService(passthroughTx{}, grades, policies, validate, nil, zerolog.Nop())
	return grades, svc
}

func failedGrade() *models.DefinitiveGrade {
	final := 8.25
	return &models.DefinitiveGrade{
		ID: 1, StudentID: 7, SubjectID: 1, SchoolYearID: 4,
		Final: &final, Approved: false, NeedsRemediation: true,
		Observations: "approval by average: final 8.25 against minimum 10.00",
	}
}

func TestRemedialApprovesWithoutTouchingFinal(t *testing.T) {
	grades, svc := newRemediationFixture(failedGrade(), nil)

	resp, err := svc.RegisterRemedial(context.Background(), dto.RemedialRequest{
		StudentID: 7, SubjectID: 1, SchoolYearID: 4, Value: 15,
	}, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.True(t, resp.Approved)

	stored, err := grades.GetByKey(context.Background(), 7, 1, 4)
	require.NoError(t, err)
	require.True(t, stored.Approved)
	require.NotNil(t, stored.RemedialValue)
	require.InDelta(t, 15.0, *stored.RemedialValue, 0.001)
	require.NotNil(t, stored.Final)
	require.InDelta(t, 8.25, *stored.Final, 0.001, "remediation must not rewrite the computed final")
	require.Contains(t, stored.Observations, "remedial evaluation registered: 15.00, approved")
	require.Contains(t, stored.Observations, "approval by average", "prior observations are kept")
}

func TestRemedialBelowMinimumStaysFailed(t *testing.T) {
	grades, svc := newRemediationFixture(failedGrade(), nil)

	resp, err := svc.RegisterRemedial(context.Background(), dto.RemedialRequest{
		StudentID: 7, SubjectID: 1, SchoolYearID: 4, Value: 6,
	}, ActivityActor{ID: 1})
	require.NoError(t, err)
	require.False(t, resp.Approved)

	stored, err := grades.GetByKey(context.Background(), 7, 1, 4)
	require.NoError(t, err)
	require.False(t, stored.Approved)
	require.Contains(t, stored.Observations, "not approved")
}

func TestRemedialRejectsOutOfRangeValue(t *testing.T) {
	_, svc := newRemediationFixture(failedGrade(), nil)

	_, err := svc.RegisterRemedial(context.Background(), dto.RemedialRequest{
		StudentID: 7, SubjectID: 1, SchoolYearID: 4, Value: 21,
	}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrScoreOutOfRange)
}

func TestRemedialDefinitiveMissing(t *testing.T) {
	_, svc := newRemediationFixture(nil, nil)

	_, err := svc.RegisterRemedial(context.Background(), dto.RemedialRequest{
		StudentID: 7, SubjectID: 1, SchoolYearID: 4, Value: 12,
	}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrDefinitiveNotFound)
}

func TestRemedialNotEligible(t *testing.T) {
	grade := failedGrade()
	grade.NeedsRemediation = false

	grades, svc := newRemediationFixture(grade, nil)

	_, err := svc.RegisterRemedial(context.Background(), dto.RemedialRequest{
		StudentID: 7, SubjectID: 1, SchoolYearID: 4, Value: 12,
	}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrNotEligible)

	stored, err := grades.GetByKey(context.Background(), 7, 1, 4)
	require.NoError(t, err)
	require.Nil(t, stored.RemedialValue)
}

func TestRemedialPolicyMissing(t *testing.T) {
	_, svc := newRemediationFixture(failedGrade(), gorm.ErrRecordNotFound)

	_, err := svc.RegisterRemedial(context.Background(), dto.RemedialRequest{
		StudentID: 7, SubjectID: 1, SchoolYearID: 4, Value: 12,
	}, ActivityActor{ID: 1})
	require.ErrorIs(t, err, ErrPolicyNotFound)
}
