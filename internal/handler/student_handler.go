package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/service"
	"github.com/unipath-io/unipath-api/internal/utils"
)

// StudentHandler wires student profile and overview routes.
type StudentHandler struct {
	students service.StudentService
	overview service.StudentOverviewService
	logger   zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(students service.StudentService, overview service.StudentOverviewService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		students: students,
		overview: overview,
		logger:   logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student endpoints to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/overview", h.getOverview)
	router.Patch("/:id/background", h.updateBackground)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	students, err := h.students.List(c.Context())
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	student, err := h.students.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) getOverview(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	overview, err := h.overview.GetOverview(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "overview retrieved", overview)
}

func (h *StudentHandler) updateBackground(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.StudentBackgroundUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	student, err := h.students.UpdateBackground(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "student background updated", student)
}

func (h *StudentHandler) handleError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrStudentNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return h.internalError(c, err)
}

func (h *StudentHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("student handler failure")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
