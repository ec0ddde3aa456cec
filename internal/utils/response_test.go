package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/unipath-io/unipath-api/internal/utils"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

func TestOKDefaultsMessageAndCarriesMeta(t *testing.T) {
	app := fiber.New()
	app.Get("/programs", func(c *fiber.Ctx) error {
		data := map[string]string{"school": "tum"}
		meta := map[string]int{"total": 42, "page": 1}
		return utils.OK(c, data, "", meta)
	})

	payload, status := perform(t, app, "/programs")
	require.Equal(t, fiber.StatusOK, status)
	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, "tum", payload.Data["school"])
	require.Equal(t, float64(42), payload.Meta["total"])
}

func TestFailCarriesDetailsWithoutData(t *testing.T) {
	app := fiber.New()
	app.Get("/programs", func(c *fiber.Ctx) error {
		details := map[string]string{"field": "studentId"}
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", details)
	})

	payload, status := perform(t, app, "/programs")
	require.Equal(t, fiber.StatusBadRequest, status)
	require.False(t, payload.Success)
	require.Equal(t, "invalid payload", payload.Message)
	require.Equal(t, "studentId", payload.Details["field"])
	require.Nil(t, payload.Data)
}

func TestSendSuccessWithStatusUsesGivenCode(t *testing.T) {
	app := fiber.New()
	app.Post("/applications", func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application created", map[string]uint{"id": 7})
	})

	req := httptest.NewRequest(http.MethodPost, "/applications", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)
	require.Equal(t, "application created", payload.Message)
	require.Equal(t, float64(7), payload.Data["id"])
}

func TestSendErrorDefaultsMessage(t *testing.T) {
	app := fiber.New()
	app.Get("/programs", func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusInternalServerError, "")
	})

	payload, status := perform(t, app, "/programs")
	require.Equal(t, fiber.StatusInternalServerError, status)
	require.False(t, payload.Success)
	require.Equal(t, "error", payload.Message)
}

func perform(t *testing.T, app *fiber.App, path string) (envelope, int) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload, resp.StatusCode
}
