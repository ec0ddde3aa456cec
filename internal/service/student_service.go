package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/repository"
)

// StudentService exposes student profile use-cases.
type StudentService interface {
	List(ctx context.Context) ([]models.Student, error)
	Get(ctx context.Context, id uint) (models.Student, error)
	UpdateBackground(ctx context.Context, id uint, payload dto.StudentBackgroundUpdateRequest) (models.Student, error)
}

type studentService struct {
	students  repository.StudentRepository
	overview  StudentOverviewService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewStudentService constructs the student profile service.
func NewStudentService(students repository.StudentRepository, overview StudentOverviewService, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		students:  students,
		overview:  overview,
		validator: validate,
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) List(ctx context.Context) ([]models.Student, error) {
	return s.students.List(ctx)
}

func (s *studentService) Get(ctx context.Context, id uint) (models.Student, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

// UpdateBackground replaces the academic background sub-record and drops
// the cached overview so derived facts are recomputed on the next read.
func (s *studentService) UpdateBackground(ctx context.Context, id uint, payload dto.StudentBackgroundUpdateRequest) (models.Student, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.Student{}, err
	}

	student, err := s.Get(ctx, id)
	if err != nil {
		return models.Student{}, err
	}

	doc := models.AcademicBackgroundDocument{}
	if payload.University != nil {
		doc.University = &models.UniversityDocument{
			GPA:           payload.University.GPA,
			MaxGPA:        payload.University.MaxGPA,
			IsGraduated:   payload.University.IsGraduated,
			HighestDegree: payload.University.HighestDegree,
		}
	}
	if payload.Language != nil {
		doc.Language = &models.LanguageDocument{
			EnglishIsPassed: payload.Language.EnglishIsPassed,
			GermanIsPassed:  payload.Language.GermanIsPassed,
			GREIsPassed:     payload.Language.GREIsPassed,
			GMATIsPassed:    payload.Language.GMATIsPassed,
			EnglishTestDate: parseTestDate(payload.Language.EnglishTestDate),
			GermanTestDate:  parseTestDate(payload.Language.GermanTestDate),
			GRETestDate:     parseTestDate(payload.Language.GRETestDate),
			GMATTestDate:    parseTestDate(payload.Language.GMATTestDate),
		}
	}

	if err := student.SetBackgroundDocument(doc); err != nil {
		return models.Student{}, err
	}
	if err := s.students.Update(ctx, &student); err != nil {
		return models.Student{}, err
	}

	if s.overview != nil {
		s.overview.InvalidateOverview(ctx, student.ID)
	}

	s.logger.Info().Uint("student_id", student.ID).Msg("academic background updated")
	return student, nil
}

func parseTestDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &parsed
}
