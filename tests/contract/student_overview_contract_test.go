package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/handler"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/rules"
)

type stubOverviewService struct {
	response dto.StudentOverviewResponse
}

func (s stubOverviewService) GetOverview(context.Context, uint) (dto.StudentOverviewResponse, error) {
	return s.response, nil
}

func (s stubOverviewService) InvalidateOverview(context.Context, uint) {}

type stubStudentService struct{}

func (stubStudentService) List(context.Context) ([]models.Student, error) {
	return nil, nil
}

func (stubStudentService) Get(context.Context, uint) (models.Student, error) {
	return models.Student{}, nil
}

func (stubStudentService) UpdateBackground(context.Context, uint, dto.StudentBackgroundUpdateRequest) (models.Student, error) {
	return models.Student{}, nil
}

func TestStudentOverviewContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "student_overview.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	daysLeft := 120
	overview := dto.StudentOverviewResponse{
		StudentID:            1,
		Name:                 "Mei Lin",
		LanguageInfoComplete: true,
		LanguagesFilled:      true,
		GeneralDocuments: rules.DocumentStatus{
			Missing: []rules.DocumentEntry{
				{DocKey: "rl_required", FileType: "RL", Counts: &rules.DocumentCounts{Required: 2, Provided: 0, Delta: 2}},
			},
			Extra: []rules.DocumentEntry{},
		},
		CVDeadline: rules.CVDeadlineSummary{CVDeadline: "2027/1/15", DaysLeftMin: 120},
		Applications: []dto.ApplicationResponse{
			{
				ID:        4,
				StudentID: 1,
				ProgramID: 9,
				School:    "Test University",
				Decided:   "O",
				Closed:    "-",
				Admission: "-",
				Evaluation: dto.ApplicationEvaluation{
					LockStatus: rules.LockStatus{IsLocked: false, CanUnlock: false},
					Deadline:   "2027/1/15",
					DaysLeft:   &daysLeft,
					DocumentStatus: rules.DocumentStatus{
						Missing: []rules.DocumentEntry{},
						Extra:   []rules.DocumentEntry{},
					},
					Progress: rules.ProgressReport{
						Rows: []rules.ChecklistRow{
							{Name: "general_documents", Applicable: true, Earned: 1},
							{Name: "submitted", Applicable: true, Earned: 0},
						},
						Percent: 50,
					},
					Readiness: rules.ReadinessGates{DocumentsReady: true, VPDUploaded: true, CVFinished: true, ReadyToSubmit: true},
				},
			},
		},
		OverallPercent: 50,
	}

	studentHandler := handler.NewStudentHandler(stubStudentService{}, stubOverviewService{response: overview}, zerolog.Nop())

	app := fiber.New()
	studentHandler.Register(app.Group("/api/v1/students"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/1/overview", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
