package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/handler"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/service"
)

type mockApplicationService struct {
	response dto.ApplicationResponse
	err      error

	lastDecision dto.ApplicationDecisionRequest
}

func (m *mockApplicationService) List(context.Context, repository.ApplicationFilter) ([]dto.ApplicationResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []dto.ApplicationResponse{m.response}, nil
}

func (m *mockApplicationService) Get(context.Context, uint) (dto.ApplicationResponse, error) {
	return m.response, m.err
}

func (m *mockApplicationService) Create(context.Context, dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	return m.response, m.err
}

func (m *mockApplicationService) Decide(_ context.Context, _ uint, payload dto.ApplicationDecisionRequest) (dto.ApplicationResponse, error) {
	m.lastDecision = payload
	return m.response, m.err
}

func (m *mockApplicationService) Submit(context.Context, uint, dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error) {
	return m.response, m.err
}

func (m *mockApplicationService) SetLock(context.Context, uint, dto.ApplicationLockRequest) (dto.ApplicationResponse, error) {
	return m.response, m.err
}

func (m *mockApplicationService) UpdateUniAssist(context.Context, uint, dto.UniAssistUpdateRequest) (dto.ApplicationResponse, error) {
	return m.response, m.err
}

func (m *mockApplicationService) Delete(context.Context, uint) error {
	return m.err
}

func newApplicationTestApp(svc service.ApplicationService) *fiber.App {
	app := fiber.New()
	h := handler.NewApplicationHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.New(io.Discard))
	h.Register(app.Group("/api/v1/applications"))
	return app
}

func decodeEnvelope(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestApplicationHandler_DecideSuccess(t *testing.T) {
	svc := &mockApplicationService{response: dto.ApplicationResponse{ID: 3, Decided: "O"}}
	app := newApplicationTestApp(svc)

	payload := bytes.NewBufferString(`{"decided": "O"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/applications/3/decision", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                    `json:"success"`
		Data    dto.ApplicationResponse `json:"data"`
		Message string                  `json:"message"`
	}
	decodeEnvelope(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "O", body.Data.Decided)
	require.Equal(t, "O", svc.lastDecision.Decided)
}

func TestApplicationHandler_LockedMapsToConflict(t *testing.T) {
	svc := &mockApplicationService{err: service.ErrApplicationLocked}
	app := newApplicationTestApp(svc)

	payload := bytes.NewBufferString(`{"decided": "O"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/applications/3/decision", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestApplicationHandler_NotReadyMapsToUnprocessable(t *testing.T) {
	svc := &mockApplicationService{err: service.ErrNotReadyToSubmit}
	app := newApplicationTestApp(svc)

	payload := bytes.NewBufferString(`{"closed": "O"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/applications/3/submission", payload)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestApplicationHandler_NotFound(t *testing.T) {
	svc := &mockApplicationService{err: service.ErrApplicationNotFound}
	app := newApplicationTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/99", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestApplicationHandler_BadIDParam(t *testing.T) {
	svc := &mockApplicationService{}
	app := newApplicationTestApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/oops", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
