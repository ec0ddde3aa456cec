package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/unipath-io/unipath-api/internal/config"
	"github.com/unipath-io/unipath-api/internal/utils"
)

// HealthStatus is the payload returned by the health endpoint.
type HealthStatus struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealthCheck reports liveness along with the service identity, so that
// probes and dashboards can tell deployments apart.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", HealthStatus{
			Status:      "ok",
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Timestamp:   time.Now().UTC(),
		})
	}
}
