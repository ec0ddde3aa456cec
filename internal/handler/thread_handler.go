package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/middleware"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/service"
	"github.com/unipath-io/unipath-api/internal/utils"
)

// ThreadHandler wires document thread endpoints including the
// websocket feed upgrade.
type ThreadHandler struct {
	threads   service.ThreadService
	feed      service.ThreadFeedService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewThreadHandler constructs the handler.
func NewThreadHandler(threads service.ThreadService, feed service.ThreadFeedService, validator *validator.Validate, logger zerolog.Logger) *ThreadHandler {
	return &ThreadHandler{
		threads:   threads,
		feed:      feed,
		validator: validator,
		logger:    logger.With().Str("component", "thread_handler").Logger(),
	}
}

// Register binds thread routes under the provided router group.
func (h *ThreadHandler) Register(router fiber.Router) {
	router.Use("/feed", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/feed", websocket.New(h.handleFeedConnection))
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/feed/latest", h.latestFeedEvent)
	router.Post("", h.create)
	router.Patch("/:id/final", h.setFinalVersion)
	router.Post("/:id/messages", h.postMessage)
	router.Delete("/:id", h.delete)
}

func (h *ThreadHandler) handleFeedConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	threadID, err := parseThreadQuery(conn.Query("thread_id"))
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusBadRequest, "thread_id required"))
		_ = conn.Close()
		return
	}

	opts := service.FeedConnectionOptions{
		UserID:   userID,
		Role:     fmt.Sprint(conn.Locals("user_role")),
		ThreadID: threadID,
	}

	h.logger.Info().Str("user_id", userID).Uint("thread_id", threadID).Msg("thread feed connected")
	h.feed.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Uint("thread_id", threadID).Msg("thread feed disconnected")
}

func (h *ThreadHandler) list(c *fiber.Ctx) error {
	filter := repository.ThreadFilter{
		FileType:    c.Query("file_type"),
		GeneralOnly: c.QueryBool("general_only"),
	}
	if studentID := parseIntQuery(c, "student_id", 0); studentID > 0 {
		id := uint(studentID)
		filter.StudentID = &id
	}
	if applicationID := parseIntQuery(c, "application_id", 0); applicationID > 0 {
		id := uint(applicationID)
		filter.ApplicationID = &id
	}

	threads, err := h.threads.List(c.Context(), filter)
	if err != nil {
		return h.internalError(c, err)
	}
	return utils.SendSuccess(c, "threads retrieved", threads)
}

func (h *ThreadHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	thread, messages, err := h.threads.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "thread retrieved", fiber.Map{
		"thread":   thread,
		"messages": messages,
	})
}

func (h *ThreadHandler) latestFeedEvent(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	event, found, err := h.feed.LastEvent(c.Context(), id)
	if err != nil {
		return h.internalError(c, err)
	}
	if !found {
		return utils.SendError(c, fiber.StatusNotFound, "no feed events for thread")
	}
	return utils.SendSuccess(c, "latest feed event", event)
}

func (h *ThreadHandler) create(c *fiber.Ctx) error {
	var payload dto.ThreadCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	thread, err := h.threads.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "thread created", thread)
}

func (h *ThreadHandler) setFinalVersion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ThreadFinalRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	thread, err := h.threads.SetFinalVersion(c.Context(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "thread final version updated", thread)
}

// postMessage accepts a multipart form: a "body" field and any number
// of "attachments" file parts.
func (h *ThreadHandler) postMessage(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	authorID, ok := c.Locals("user_id").(uint)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}
	authorRole := fmt.Sprint(c.Locals("user_role"))

	payload := dto.MessageCreateRequest{Body: c.FormValue("body")}
	var attachments []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		attachments = form.File["attachments"]
	}

	message, err := h.threads.PostMessage(c.Context(), id, authorID, authorRole, payload, attachments)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message posted", message)
}

func (h *ThreadHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.threads.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "thread deleted", nil)
}

func (h *ThreadHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrThreadNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "thread not found")
	case errors.Is(err, service.ErrThreadLocked):
		return utils.SendError(c, fiber.StatusConflict, "application is locked")
	case errors.Is(err, service.ErrApplicationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrAttachmentTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "attachment exceeds size limit")
	case errors.Is(err, service.ErrAttachmentTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "attachment type not allowed")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return h.internalError(c, err)
}

func (h *ThreadHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("thread handler failure")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

func parseThreadQuery(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("thread_id required")
	}
	var id uint
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil || id == 0 {
		return 0, errors.New("invalid thread_id")
	}
	return id, nil
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case float64:
			return fmt.Sprintf("%d", uint(v))
		case uint:
			return fmt.Sprintf("%d", v)
		case int:
			return fmt.Sprintf("%d", v)
		case string:
			return strings.TrimSpace(v)
		}
	}
	return ""
}
