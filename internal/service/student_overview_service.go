package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/observability"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/rules"
)

// ErrStudentNotFound indicates the student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// StudentOverviewService produces the aggregated student dashboard: all
// derived facts for every application plus the student-level reconciliations.
type StudentOverviewService interface {
	GetOverview(ctx context.Context, studentID uint) (dto.StudentOverviewResponse, error)
	InvalidateOverview(ctx context.Context, studentID uint)
}

type studentOverviewService struct {
	students repository.StudentRepository
	engine   *rules.Engine
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewStudentOverviewService builds the overview aggregator.
func NewStudentOverviewService(students repository.StudentRepository, engine *rules.Engine, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentOverviewService {
	return &studentOverviewService{
		students: students,
		engine:   engine,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "student_overview_service").Logger(),
		tracer:   otel.Tracer("github.com/unipath-io/unipath-api/internal/service/overview"),
	}
}

func overviewCacheKey(studentID uint) string {
	return fmt.Sprintf("overview:student:%d", studentID)
}

func (s *studentOverviewService) GetOverview(ctx context.Context, studentID uint) (dto.StudentOverviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "overview.get")
	defer span.End()
	span.SetAttributes(attribute.Int("student.id", int(studentID)))

	cacheKey := overviewCacheKey(studentID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentOverviewResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("overview cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read overview cache")
		}
	}

	student, err := s.students.GetWithRelations(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentOverviewResponse{}, ErrStudentNotFound
		}
		return dto.StudentOverviewResponse{}, err
	}

	response := s.buildOverview(student)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store overview cache")
			}
		}
	}

	return response, nil
}

// InvalidateOverview drops the cached dashboard after a mutation.
func (s *studentOverviewService) InvalidateOverview(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, overviewCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate overview cache")
	}
}

func (s *studentOverviewService) buildOverview(student models.Student) dto.StudentOverviewResponse {
	snapshot := student.Snapshot()
	observability.RuleEvaluations().WithLabelValues("student_overview").Inc()

	response := dto.StudentOverviewResponse{
		StudentID:            student.ID,
		Name:                 student.Name,
		LanguageInfoComplete: rules.IsLanguageInfoComplete(snapshot.AcademicBackground),
		LanguagesFilled:      s.engine.LanguagesFilled(snapshot.AcademicBackground),
		GeneralDocuments:     s.engine.GeneralDocumentStatus(snapshot.GeneralThreads, snapshot.Applications),
		CVDeadline:           s.engine.CVDeadline(snapshot),
	}

	decidedTotal := 0
	percentSum := 0
	for index, application := range student.Applications {
		appSnapshot := snapshot.Applications[index]

		evaluation := dto.ApplicationEvaluation{
			LockStatus:     s.engine.ApplicationLockStatus(appSnapshot),
			Deadline:       s.engine.ApplicationDeadline(appSnapshot),
			DocumentStatus: s.engine.ProgramDocumentStatus(appSnapshot.Program, appSnapshot.Threads),
			Progress:       s.engine.Progress(snapshot, appSnapshot),
			Readiness:      s.engine.Readiness(snapshot, appSnapshot),
		}
		if days, ok := s.engine.DaysLeft(appSnapshot); ok {
			evaluation.DaysLeft = &days
		}

		response.Applications = append(response.Applications, dto.ApplicationResponse{
			ID:             application.ID,
			StudentID:      application.StudentID,
			ProgramID:      application.ProgramID,
			School:         application.Program.School,
			ProgramName:    application.Program.ProgramName,
			Decided:        application.Decided,
			Closed:         application.Closed,
			Admission:      application.Admission,
			FinalEnrolment: application.FinalEnrolment,
			Evaluation:     evaluation,
		})

		if appSnapshot.IsDecided() && !appSnapshot.IsWithdrawn() {
			decidedTotal++
			percentSum += evaluation.Progress.Percent
		}
	}

	if decidedTotal > 0 {
		response.OverallPercent = percentSum / decidedTotal
	}

	return response
}
