package handler

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return uint(parsed), nil
}

func parseIntQuery(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
