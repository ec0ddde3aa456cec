package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/rules"
)

// ErrProgramNotFound indicates the catalog entry does not exist.
var ErrProgramNotFound = errors.New("program not found")

// catalogEntrySchema validates one entry of a bulk catalog import.
const catalogEntrySchema = `{
  "type": "object",
  "required": ["school", "program_name", "country"],
  "properties": {
    "school": {"type": "string", "minLength": 1},
    "program_name": {"type": "string", "minLength": 1},
    "degree": {"type": "string"},
    "country": {"type": "string", "minLength": 2, "maxLength": 8},
    "lang": {"type": "string"},
    "semester": {"enum": ["WS", "SS", ""]},
    "application_deadline": {"type": "string"},
    "rl_required": {"type": "string"},
    "ml_required": {"enum": ["yes", "no", ""]},
    "sop_required": {"enum": ["yes", "no", ""]},
    "phs_required": {"enum": ["yes", "no", ""]},
    "essay_required": {"enum": ["yes", "no", ""]},
    "portfolio_required": {"enum": ["yes", "no", ""]},
    "supplementary_form_required": {"enum": ["yes", "no", ""]},
    "scholarship_form_required": {"enum": ["yes", "no", ""]},
    "curriculum_analysis_required": {"enum": ["yes", "no", ""]},
    "is_rl_specific": {"type": "boolean"},
    "uni_assist": {"type": "string"},
    "allow_only_graduated_applicant": {"type": "boolean"}
  }
}`

// ProgramService exposes catalog use-cases.
type ProgramService interface {
	List(ctx context.Context, filter repository.ProgramFilter) (dto.ProgramListResponse, error)
	Get(ctx context.Context, id uint) (dto.ProgramResponse, error)
	Create(ctx context.Context, payload dto.ProgramUpsertRequest) (dto.ProgramResponse, error)
	Update(ctx context.Context, id uint, payload dto.ProgramUpsertRequest) (dto.ProgramResponse, error)
	Delete(ctx context.Context, id uint) error
	ImportCatalog(ctx context.Context, payload []byte) (dto.CatalogImportResult, error)
}

type programService struct {
	repo      repository.ProgramRepository
	engine    *rules.Engine
	validator *validator.Validate
	schema    *jsonschema.Schema
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProgramService constructs the catalog service.
func NewProgramService(repo repository.ProgramRepository, engine *rules.Engine, validate *validator.Validate, logger zerolog.Logger) (ProgramService, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog_entry.json", strings.NewReader(catalogEntrySchema)); err != nil {
		return nil, fmt.Errorf("failed to register catalog schema: %w", err)
	}
	schema, err := compiler.Compile("catalog_entry.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog schema: %w", err)
	}

	return &programService{
		repo:      repo,
		engine:    engine,
		validator: validate,
		schema:    schema,
		logger:    logger.With().Str("component", "program_service").Logger(),
		tracer:    otel.Tracer("github.com/unipath-io/unipath-api/internal/service/program"),
		now:       time.Now,
	}, nil
}

func (s *programService) List(ctx context.Context, filter repository.ProgramFilter) (dto.ProgramListResponse, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ProgramListResponse{}, err
	}

	response := dto.ProgramListResponse{
		Programs: make([]dto.ProgramResponse, 0, len(programs)),
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}
	for _, program := range programs {
		response.Programs = append(response.Programs, s.toResponse(program))
	}
	return response, nil
}

func (s *programService) Get(ctx context.Context, id uint) (dto.ProgramResponse, error) {
	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgramResponse{}, ErrProgramNotFound
		}
		return dto.ProgramResponse{}, err
	}
	return s.toResponse(program), nil
}

func (s *programService) Create(ctx context.Context, payload dto.ProgramUpsertRequest) (dto.ProgramResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProgramResponse{}, err
	}

	program := programFromPayload(payload)
	now := s.now()
	program.DataUpdatedAt = &now

	if err := s.repo.Create(ctx, &program); err != nil {
		return dto.ProgramResponse{}, err
	}
	s.logger.Info().Uint("program_id", program.ID).Str("school", program.School).Msg("program created")
	return s.toResponse(program), nil
}

func (s *programService) Update(ctx context.Context, id uint, payload dto.ProgramUpsertRequest) (dto.ProgramResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProgramResponse{}, err
	}

	program, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgramResponse{}, ErrProgramNotFound
		}
		return dto.ProgramResponse{}, err
	}

	updated := programFromPayload(payload)
	updated.ID = program.ID
	updated.CreatedAt = program.CreatedAt
	now := s.now()
	updated.DataUpdatedAt = &now

	if err := s.repo.Update(ctx, &updated); err != nil {
		return dto.ProgramResponse{}, err
	}
	return s.toResponse(updated), nil
}

func (s *programService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProgramNotFound
		}
		return err
	}
	return nil
}

// ImportCatalog ingests a JSON array of catalog entries, validating each
// against the catalog schema. Invalid entries are rejected individually
// without aborting the batch.
func (s *programService) ImportCatalog(ctx context.Context, payload []byte) (dto.CatalogImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.import")
	defer span.End()

	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return dto.CatalogImportResult{}, fmt.Errorf("catalog payload must be a JSON array: %w", err)
	}
	span.SetAttributes(attribute.Int("catalog.entries", len(entries)))

	result := dto.CatalogImportResult{}
	for index, raw := range entries {
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: invalid JSON", index))
			continue
		}
		if err := s.schema.Validate(decoded); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %v", index, err))
			continue
		}

		var request dto.ProgramUpsertRequest
		if err := json.Unmarshal(raw, &request); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %v", index, err))
			continue
		}

		program := programFromPayload(request)
		now := s.now()
		program.DataUpdatedAt = &now
		if err := s.repo.Create(ctx, &program); err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %v", index, err))
			continue
		}
		result.Imported++
	}

	s.logger.Info().
		Int("imported", result.Imported).
		Int("rejected", result.Rejected).
		Msg("catalog import finished")
	return result, nil
}

func (s *programService) toResponse(program models.Program) dto.ProgramResponse {
	return dto.ProgramResponse{
		ID:                          program.ID,
		School:                      program.School,
		ProgramName:                 program.ProgramName,
		Degree:                      program.Degree,
		Country:                     program.Country,
		Language:                    program.Language,
		Semester:                    program.Semester,
		ApplicationDeadline:         program.ApplicationDeadline,
		UniAssist:                   program.UniAssist,
		IsRLSpecific:                program.IsRLSpecific,
		RLRequired:                  program.RLRequired,
		MLRequired:                  program.MLRequired,
		SOPRequired:                 program.SOPRequired,
		EssayRequired:               program.EssayRequired,
		AllowOnlyGraduatedApplicant: program.AllowOnlyGraduatedApplicant,
		UpdatedAt:                   program.DataUpdatedAt,
		LockStatus:                  s.engine.ProgramLockStatus(program.Snapshot()),
	}
}

func programFromPayload(payload dto.ProgramUpsertRequest) models.Program {
	return models.Program{
		School:                      payload.School,
		ProgramName:                 payload.ProgramName,
		Degree:                      payload.Degree,
		Country:                     strings.ToLower(strings.TrimSpace(payload.Country)),
		Language:                    payload.Language,
		Semester:                    payload.Semester,
		ApplicationDeadline:         payload.ApplicationDeadline,
		RLRequired:                  payload.RLRequired,
		MLRequired:                  payload.MLRequired,
		SOPRequired:                 payload.SOPRequired,
		PHSRequired:                 payload.PHSRequired,
		EssayRequired:               payload.EssayRequired,
		PortfolioRequired:           payload.PortfolioRequired,
		SupplementaryFormRequired:   payload.SupplementaryFormRequired,
		ScholarshipFormRequired:     payload.ScholarshipFormRequired,
		CurriculumAnalysisRequired:  payload.CurriculumAnalysisRequired,
		IsRLSpecific:                payload.IsRLSpecific,
		UniAssist:                   payload.UniAssist,
		ApplicationPortalA:          payload.ApplicationPortalA,
		ApplicationPortalB:          payload.ApplicationPortalB,
		AllowOnlyGraduatedApplicant: payload.AllowOnlyGraduatedApplicant,
	}
}
