package unit

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/unipath-io/unipath-api/internal/config"
	"github.com/unipath-io/unipath-api/internal/handler"
)

func TestHealthCheck(t *testing.T) {
	cfg := config.Config{
		AppName: "UniPath API",
		AppEnv:  "test",
	}

	app := fiber.New()
	app.Get("/api/v1/health", handler.HealthCheck(cfg))

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                 `json:"success"`
		Data    handler.HealthStatus `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	require.True(t, payload.Success)
	require.Equal(t, "ok", payload.Data.Status)
	require.Equal(t, cfg.AppName, payload.Data.Service)
	require.Equal(t, cfg.AppEnv, payload.Data.Environment)
	require.WithinDuration(t, time.Now().UTC(), payload.Data.Timestamp, 2*time.Second)
}
