package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/escolarhq/notas-api/internal/dto"
	"github.com/escolarhq/notas-api/internal/models"
	"github.com/escolarhq/notas-api/internal/repository"
)

// ReportInvalidator busts cached gradebook reports after a definitive
// grade run touches their cohort.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, schoolYearID uint, gradeLevelID, sectionID *uint)
}

// ReportService produces the cohort gradebook consumed by dashboards
// and report cards. Reads are cached; the cache is only a read
// optimization and never part of the grading transaction.
type ReportService interface {
	ReportInvalidator
	GetGradebook(ctx context.Context, schoolYearID uint, gradeLevelID, sectionID *uint) (dto.GradebookReport, error)
}

type reportService struct {
	aggregates repository.PeriodAggregateRepository
	grades     repository.DefinitiveGradeRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewReportService builds the gradebook report service.
func NewReportService(aggregates repository.PeriodAggregateRepository, grades repository.DefinitiveGradeRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &reportService{
		aggregates: aggregates,
		grades:     grades,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *reportService) GetGradebook(ctx context.Context, schoolYearID uint, gradeLevelID, sectionID *uint) (dto.GradebookReport, error) {
	cacheKey := gradebookCacheKey(schoolYearID, gradeLevelID, sectionID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var report dto.GradebookReport
			if unmarshalErr := json.Unmarshal([]byte(cached), &report); unmarshalErr == nil {
				s.logger.Debug().Str("key", cacheKey).Msg("gradebook cache hit")
				return report, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read gradebook cache")
		}
	}

	scope := repository.AggregateScope{
		SchoolYearID: schoolYearID,
		GradeLevelID: gradeLevelID,
		SectionID:    sectionID,
	}

	aggregates, err := s.aggregates.ListByScope(ctx, scope)
	if err != nil {
		return dto.GradebookReport{}, err
	}

	grades, err := s.grades.ListByScope(ctx, scope)
	if err != nil {
		return dto.GradebookReport{}, err
	}

	report := s.buildReport(schoolYearID, gradeLevelID, sectionID, aggregates, grades)

	if s.cache != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store gradebook cache")
			}
		}
	}

	return report, nil
}

func (s *reportService) Invalidate(ctx context.Context, schoolYearID uint, gradeLevelID, sectionID *uint) {
	if s.cache == nil {
		return
	}

	cacheKey := gradebookCacheKey(schoolYearID, gradeLevelID, sectionID)
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to invalidate gradebook cache")
	}
}

func (s *reportService) buildReport(schoolYearID uint, gradeLevelID, sectionID *uint, aggregates []models.PeriodAggregate, grades []models.DefinitiveGrade) dto.GradebookReport {
	type pairKey struct {
		studentID uint
		subjectID uint
	}

	entries := map[pairKey]*dto.GradebookEntry{}
	order := []pairKey{}

	for _, aggregate := range aggregates {
		key := pairKey{aggregate.StudentID, aggregate.SubjectID}
		entry, ok := entries[key]
		if !ok {
			entry = &dto.GradebookEntry{StudentID: aggregate.StudentID, SubjectID: aggregate.SubjectID}
			entries[key] = entry
			order = append(order, key)
		}
		if aggregate.Period >= 1 && aggregate.Period <= 3 {
			value := aggregate.Value
			entry.PeriodValues[aggregate.Period-1] = &value
		}
	}

	for _, grade := range grades {
		key := pairKey{grade.StudentID, grade.SubjectID}
		entry, ok := entries[key]
		if !ok {
			entry = &dto.GradebookEntry{StudentID: grade.StudentID, SubjectID: grade.SubjectID}
			entries[key] = entry
			order = append(order, key)
		}
		entry.Final = grade.Final
		approved := grade.Approved
		needsRemediation := grade.NeedsRemediation
		entry.Approved = &approved
		entry.NeedsRemediation = &needsRemediation
	}

	report := dto.GradebookReport{
		SchoolYearID: schoolYearID,
		GradeLevelID: gradeLevelID,
		SectionID:    sectionID,
		Entries:      make([]dto.GradebookEntry, 0, len(order)),
	}
	for _, key := range order {
		report.Entries = append(report.Entries, *entries[key])
	}

	return report
}

func gradebookCacheKey(schoolYearID uint, gradeLevelID, sectionID *uint) string {
	grade, section := uint(0), uint(0)
	if gradeLevelID != nil {
		grade = *gradeLevelID
	}
	if sectionID != nil {
		section = *sectionID
	}
	return fmt.Sprintf("gradebook:%d:%d:%d", schoolYearID, grade, section)
}
