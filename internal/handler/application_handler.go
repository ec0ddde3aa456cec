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

// ApplicationHandler wires application workflow HTTP routes.
type ApplicationHandler struct {
	service   service.ApplicationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(service service.ApplicationService, validator *validator.Validate, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register attaches application endpoints to the router group.
func (h *ApplicationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("", h.create)
	router.Patch("/:id/decision", h.decide)
	router.Patch("/:id/submission", h.submit)
	router.Patch("/:id/lock", h.setLock)
	router.Patch("/:id/uni-assist", h.updateUniAssist)
	router.Delete("/:id", h.delete)
}

func (h *ApplicationHandler) list(c *fiber.Ctx) error {
	filter := repository.ApplicationFilter{Decided: c.Query("decided")}
	if studentID := parseIntQuery(c, "student_id", 0); studentID > 0 {
		id := uint(studentID)
		filter.StudentID = &id
	}
	if programID := parseIntQuery(c, "program_id", 0); programID > 0 {
		id := uint(programID)
		filter.ProgramID = &id
	}

	applications, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "applications retrieved", applications)
}

func (h *ApplicationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *ApplicationHandler) create(c *fiber.Ctx) error {
	var payload dto.ApplicationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application created", application)
}

func (h *ApplicationHandler) decide(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.Decide(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "application decision updated", application)
}

func (h *ApplicationHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.Submit(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "application submission updated", application)
}

func (h *ApplicationHandler) setLock(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationLockRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.SetLock(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "application lock updated", application)
}

func (h *ApplicationHandler) updateUniAssist(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UniAssistUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.UpdateUniAssist(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "uni-assist state updated", application)
}

func (h *ApplicationHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "application deleted", nil)
}

func (h *ApplicationHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrProgramNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "program not found")
	case errors.Is(err, service.ErrApplicationLocked):
		return utils.SendError(c, fiber.StatusConflict, "application is locked")
	case errors.Is(err, service.ErrLockNotOverridable):
		return utils.SendError(c, fiber.StatusConflict, "lock status cannot be overridden")
	case errors.Is(err, service.ErrNotReadyToSubmit):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "application is not ready to submit")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return h.internalError(c, err)
}

func (h *ApplicationHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("application handler failure")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
