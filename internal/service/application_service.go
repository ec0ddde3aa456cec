package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
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

var (
	// ErrApplicationNotFound indicates the application does not exist.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrApplicationLocked indicates the edit was rejected by the lock
	// calculator.
	ErrApplicationLocked = errors.New("application is locked")
	// ErrLockNotOverridable indicates the lock cannot be toggled by the
	// user (stale data or approval-country policy).
	ErrLockNotOverridable = errors.New("lock status cannot be overridden")
	// ErrNotReadyToSubmit indicates one or more readiness gates failed.
	ErrNotReadyToSubmit = errors.New("application is not ready to submit")
)

// ApplicationService exposes application workflow use-cases. Every edit
// is gated by the rules engine's lock status.
type ApplicationService interface {
	List(ctx context.Context, filter repository.ApplicationFilter) ([]dto.ApplicationResponse, error)
	Get(ctx context.Context, id uint) (dto.ApplicationResponse, error)
	Create(ctx context.Context, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error)
	Decide(ctx context.Context, id uint, payload dto.ApplicationDecisionRequest) (dto.ApplicationResponse, error)
	Submit(ctx context.Context, id uint, payload dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error)
	SetLock(ctx context.Context, id uint, payload dto.ApplicationLockRequest) (dto.ApplicationResponse, error)
	UpdateUniAssist(ctx context.Context, id uint, payload dto.UniAssistUpdateRequest) (dto.ApplicationResponse, error)
	Delete(ctx context.Context, id uint) error
}

type applicationService struct {
	applications repository.ApplicationRepository
	programs     repository.ProgramRepository
	students     repository.StudentRepository
	engine       *rules.Engine
	validator    *validator.Validate
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewApplicationService constructs the application workflow service.
func NewApplicationService(
	applications repository.ApplicationRepository,
	programs repository.ProgramRepository,
	students repository.StudentRepository,
	engine *rules.Engine,
	validate *validator.Validate,
	logger zerolog.Logger,
) ApplicationService {
	return &applicationService{
		applications: applications,
		programs:     programs,
		students:     students,
		engine:       engine,
		validator:    validate,
		logger:       logger.With().Str("component", "application_service").Logger(),
		tracer:       otel.Tracer("github.com/unipath-io/unipath-api/internal/service/application"),
	}
}

func (s *applicationService) List(ctx context.Context, filter repository.ApplicationFilter) ([]dto.ApplicationResponse, error) {
	applications, err := s.applications.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ApplicationResponse, 0, len(applications))
	for _, application := range applications {
		student, err := s.studentSnapshot(ctx, application.StudentID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, s.toResponse(application, student))
	}
	return responses, nil
}

func (s *applicationService) Get(ctx context.Context, id uint) (dto.ApplicationResponse, error) {
	application, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	student, err := s.studentSnapshot(ctx, application.StudentID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	return s.toResponse(application, student), nil
}

func (s *applicationService) Create(ctx context.Context, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	program, err := s.programs.GetByID(ctx, payload.ProgramID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrProgramNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	application := models.Application{
		StudentID:       payload.StudentID,
		ProgramID:       program.ID,
		Decided:         models.FlagUnset,
		Closed:          models.FlagUnset,
		Admission:       models.FlagUnset,
		ApplicationYear: payload.ApplicationYear,
	}
	if err := s.applications.Create(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}
	application.Program = program

	s.logger.Info().
		Uint("application_id", application.ID).
		Uint("student_id", payload.StudentID).
		Uint("program_id", program.ID).
		Msg("application created")

	student, err := s.studentSnapshot(ctx, application.StudentID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	return s.toResponse(application, student), nil
}

func (s *applicationService) Decide(ctx context.Context, id uint, payload dto.ApplicationDecisionRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	return s.edit(ctx, id, func(application *models.Application) error {
		application.Decided = payload.Decided
		return nil
	})
}

// Submit enforces the readiness gates before marking the application
// submitted. Withdrawals and reopenings skip the gates.
func (s *applicationService) Submit(ctx context.Context, id uint, payload dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	return s.edit(ctx, id, func(application *models.Application) error {
		if payload.Closed == models.FlagYes {
			student, err := s.studentSnapshot(ctx, application.StudentID)
			if err != nil {
				return err
			}
			gates := s.engine.Readiness(student, application.Snapshot())
			if !gates.ReadyToSubmit {
				return ErrNotReadyToSubmit
			}
		}
		application.Closed = payload.Closed
		return nil
	})
}

// SetLock toggles the per-application override. It is rejected when the
// calculator reports the lock as not user-controlled.
func (s *applicationService) SetLock(ctx context.Context, id uint, payload dto.ApplicationLockRequest) (dto.ApplicationResponse, error) {
	application, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	status := s.engine.ApplicationLockStatus(application.Snapshot())
	if !status.CanUnlock {
		return dto.ApplicationResponse{}, ErrLockNotOverridable
	}

	locked := payload.IsLocked
	application.IsLocked = &locked
	if err := s.applications.Update(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	student, err := s.studentSnapshot(ctx, application.StudentID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	return s.toResponse(application, student), nil
}

func (s *applicationService) UpdateUniAssist(ctx context.Context, id uint, payload dto.UniAssistUpdateRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	return s.edit(ctx, id, func(application *models.Application) error {
		return application.SetUniAssistDoc(models.UniAssistDocument{
			Status:      payload.Status,
			IsPaid:      payload.IsPaid,
			VPDFilePath: payload.VPDFilePath,
		})
	})
}

func (s *applicationService) Delete(ctx context.Context, id uint) error {
	if err := s.applications.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}
	return nil
}

// edit loads, lock-checks, mutates and persists one application.
func (s *applicationService) edit(ctx context.Context, id uint, mutate func(*models.Application) error) (dto.ApplicationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "application.edit")
	defer span.End()
	span.SetAttributes(attribute.Int("application.id", int(id)))

	application, err := s.load(ctx, id)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	status := s.engine.ApplicationLockStatus(application.Snapshot())
	observability.RuleEvaluations().WithLabelValues("lock_status").Inc()
	if status.IsLocked {
		span.SetAttributes(attribute.String("application.lock_reason", string(status.Reason)))
		return dto.ApplicationResponse{}, ErrApplicationLocked
	}

	if err := mutate(&application); err != nil {
		return dto.ApplicationResponse{}, err
	}
	if err := s.applications.Update(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	student, err := s.studentSnapshot(ctx, application.StudentID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	return s.toResponse(application, student), nil
}

func (s *applicationService) load(ctx context.Context, id uint) (models.Application, error) {
	application, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Application{}, ErrApplicationNotFound
		}
		return models.Application{}, err
	}
	return application, nil
}

func (s *applicationService) studentSnapshot(ctx context.Context, studentID uint) (rules.Student, error) {
	student, err := s.students.GetWithRelations(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rules.Student{}, nil
		}
		return rules.Student{}, err
	}
	return student.Snapshot(), nil
}

// toResponse evaluates every derived fact for the application and packs
// it next to the stored fields.
func (s *applicationService) toResponse(application models.Application, student rules.Student) dto.ApplicationResponse {
	snapshot := application.Snapshot()

	evaluation := dto.ApplicationEvaluation{
		LockStatus:     s.engine.ApplicationLockStatus(snapshot),
		Deadline:       s.engine.ApplicationDeadline(snapshot),
		DocumentStatus: s.engine.ProgramDocumentStatus(snapshot.Program, snapshot.Threads),
		Progress:       s.engine.Progress(student, snapshot),
		Readiness:      s.engine.Readiness(student, snapshot),
	}
	if days, ok := s.engine.DaysLeft(snapshot); ok {
		evaluation.DaysLeft = &days
	}
	observability.RuleEvaluations().WithLabelValues("application_evaluation").Inc()

	return dto.ApplicationResponse{
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
	}
}
