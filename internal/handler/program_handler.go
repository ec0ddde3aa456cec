package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/service"
	"github.com/unipath-io/unipath-api/internal/utils"
)

// ProgramHandler wires catalog HTTP routes.
type ProgramHandler struct {
	service   service.ProgramService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewProgramHandler constructs the handler.
func NewProgramHandler(service service.ProgramService, validator *validator.Validate, logger zerolog.Logger) *ProgramHandler {
	return &ProgramHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "program_handler").Logger(),
	}
}

// Register attaches catalog endpoints to the router group. Mutating
// routes are expected to sit behind the agent role guard.
func (h *ProgramHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/import", h.importCatalog)
}

func (h *ProgramHandler) list(c *fiber.Ctx) error {
	filter := repository.ProgramFilter{
		Search:   c.Query("search"),
		Country:  c.Query("country"),
		Degree:   c.Query("degree"),
		Semester: c.Query("semester"),
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 50),
	}

	programs, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "programs retrieved", programs)
}

func (h *ProgramHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	program, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "program not found")
		}
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "program retrieved", program)
}

func (h *ProgramHandler) create(c *fiber.Ctx) error {
	var payload dto.ProgramUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	program, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "program created", program)
}

func (h *ProgramHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ProgramUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	program, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "program not found")
		}
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "program updated", program)
}

func (h *ProgramHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "program not found")
		}
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "program deleted", nil)
}

func (h *ProgramHandler) importCatalog(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "request body is required")
	}

	result, err := h.service.ImportCatalog(c.Context(), body)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return utils.SendSuccess(c, "catalog import finished", result)
}

func (h *ProgramHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return h.internalError(c, err)
}

func (h *ProgramHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("program handler failure")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
