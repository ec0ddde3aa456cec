package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/observability"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/rules"
)

var (
	// ErrThreadNotFound indicates the document thread does not exist.
	ErrThreadNotFound = errors.New("document thread not found")
	// ErrThreadLocked indicates the owning application is locked.
	ErrThreadLocked = errors.New("document thread belongs to a locked application")
	// ErrAttachmentTooLarge indicates the upload exceeded the limit.
	ErrAttachmentTooLarge = errors.New("attachment exceeds maximum allowed size")
	// ErrAttachmentTypeNotAllowed indicates a disallowed MIME type.
	ErrAttachmentTypeNotAllowed = errors.New("attachment type not allowed")
)

// allowedAttachmentTypes are the document formats accepted on threads.
var allowedAttachmentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
	"image/png":  {},
	"image/jpeg": {},
	"text/plain": {},
}

// FileStorage abstracts attachment upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// FeedPublisher receives the events the thread service emits after a
// message is persisted.
type FeedPublisher interface {
	PublishMessage(ctx context.Context, event dto.FeedEvent)
}

// ThreadService exposes document thread use-cases.
type ThreadService interface {
	List(ctx context.Context, filter repository.ThreadFilter) ([]dto.ThreadResponse, error)
	Get(ctx context.Context, id uint) (dto.ThreadResponse, []dto.MessageResponse, error)
	Create(ctx context.Context, payload dto.ThreadCreateRequest) (dto.ThreadResponse, error)
	SetFinalVersion(ctx context.Context, id uint, payload dto.ThreadFinalRequest) (dto.ThreadResponse, error)
	PostMessage(ctx context.Context, threadID, authorID uint, authorRole string, payload dto.MessageCreateRequest, attachments []*multipart.FileHeader) (dto.MessageResponse, error)
	Delete(ctx context.Context, id uint) error
}

type threadService struct {
	threads      repository.ThreadRepository
	applications repository.ApplicationRepository
	engine       *rules.Engine
	storage      FileStorage
	feed         FeedPublisher
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	maxSize      int64
}

// NewThreadService constructs the document thread service.
func NewThreadService(
	threads repository.ThreadRepository,
	applications repository.ApplicationRepository,
	engine *rules.Engine,
	storage FileStorage,
	feed FeedPublisher,
	validate *validator.Validate,
	maxSizeMB int,
	logger zerolog.Logger,
) ThreadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("br")

	return &threadService{
		threads:      threads,
		applications: applications,
		engine:       engine,
		storage:      storage,
		feed:         feed,
		validator:    validate,
		sanitizer:    policy,
		logger:       logger.With().Str("component", "thread_service").Logger(),
		tracer:       otel.Tracer("github.com/unipath-io/unipath-api/internal/service/thread"),
		maxSize:      int64(maxSizeMB) * 1024 * 1024,
	}
}

func (s *threadService) List(ctx context.Context, filter repository.ThreadFilter) ([]dto.ThreadResponse, error) {
	threads, err := s.threads.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		responses = append(responses, toThreadResponse(thread))
	}
	return responses, nil
}

func (s *threadService) Get(ctx context.Context, id uint) (dto.ThreadResponse, []dto.MessageResponse, error) {
	thread, err := s.load(ctx, id)
	if err != nil {
		return dto.ThreadResponse{}, nil, err
	}

	messages := make([]dto.MessageResponse, 0, len(thread.Messages))
	for _, message := range thread.Messages {
		messages = append(messages, toMessageResponse(message))
	}
	return toThreadResponse(thread), messages, nil
}

func (s *threadService) Create(ctx context.Context, payload dto.ThreadCreateRequest) (dto.ThreadResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ThreadResponse{}, err
	}

	if payload.ApplicationID != nil {
		if err := s.checkApplicationUnlocked(ctx, *payload.ApplicationID); err != nil {
			return dto.ThreadResponse{}, err
		}
	}

	thread := models.DocumentThread{
		StudentID:     payload.StudentID,
		ApplicationID: payload.ApplicationID,
		FileType:      strings.TrimSpace(payload.FileType),
	}
	if err := s.threads.Create(ctx, &thread); err != nil {
		return dto.ThreadResponse{}, err
	}

	s.logger.Info().
		Uint("thread_id", thread.ID).
		Str("file_type", thread.FileType).
		Msg("document thread created")
	return toThreadResponse(thread), nil
}

// SetFinalVersion toggles the final flag; edits on threads of locked
// applications are rejected.
func (s *threadService) SetFinalVersion(ctx context.Context, id uint, payload dto.ThreadFinalRequest) (dto.ThreadResponse, error) {
	thread, err := s.load(ctx, id)
	if err != nil {
		return dto.ThreadResponse{}, err
	}

	if thread.ApplicationID != nil {
		if err := s.checkApplicationUnlocked(ctx, *thread.ApplicationID); err != nil {
			return dto.ThreadResponse{}, err
		}
	}

	thread.IsFinalVersion = payload.IsFinalVersion
	if err := s.threads.Update(ctx, &thread); err != nil {
		return dto.ThreadResponse{}, err
	}
	return toThreadResponse(thread), nil
}

func (s *threadService) PostMessage(ctx context.Context, threadID, authorID uint, authorRole string, payload dto.MessageCreateRequest, attachments []*multipart.FileHeader) (dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "thread.post_message")
	defer span.End()
	span.SetAttributes(
		attribute.Int("thread.id", int(threadID)),
		attribute.Int("thread.attachments", len(attachments)),
	)

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.MessageResponse{}, err
	}

	thread, err := s.load(ctx, threadID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	if thread.ApplicationID != nil {
		if err := s.checkApplicationUnlocked(ctx, *thread.ApplicationID); err != nil {
			return dto.MessageResponse{}, err
		}
	}

	stored := make([]models.Attachment, 0, len(attachments))
	for _, header := range attachments {
		attachment, err := s.storeAttachment(ctx, thread, header)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attachment rejected")
			return dto.MessageResponse{}, err
		}
		stored = append(stored, attachment)
	}

	message := models.ThreadMessage{
		ThreadID:   thread.ID,
		AuthorID:   authorID,
		AuthorRole: authorRole,
		Body:       s.sanitizer.Sanitize(payload.Body),
	}
	if err := message.SetAttachmentList(stored); err != nil {
		return dto.MessageResponse{}, err
	}
	if err := s.threads.AppendMessage(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	response := toMessageResponse(message)
	if s.feed != nil {
		s.feed.PublishMessage(ctx, dto.FeedEvent{
			ThreadID: thread.ID,
			Message:  response,
			SentAt:   time.Now().UTC(),
		})
	}
	return response, nil
}

func (s *threadService) Delete(ctx context.Context, id uint) error {
	thread, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if thread.ApplicationID != nil {
		if err := s.checkApplicationUnlocked(ctx, *thread.ApplicationID); err != nil {
			return err
		}
	}
	return s.threads.Delete(ctx, id)
}

func (s *threadService) load(ctx context.Context, id uint) (models.DocumentThread, error) {
	thread, err := s.threads.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DocumentThread{}, ErrThreadNotFound
		}
		return models.DocumentThread{}, err
	}
	return thread, nil
}

func (s *threadService) checkApplicationUnlocked(ctx context.Context, applicationID uint) error {
	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}
	status := s.engine.ApplicationLockStatus(application.Snapshot())
	observability.RuleEvaluations().WithLabelValues("lock_status").Inc()
	if status.IsLocked {
		return ErrThreadLocked
	}
	return nil
}

// storeAttachment validates size and detected MIME type before handing
// the bytes to the storage backend.
func (s *threadService) storeAttachment(ctx context.Context, thread models.DocumentThread, header *multipart.FileHeader) (models.Attachment, error) {
	if header.Size > s.maxSize {
		observability.AttachmentRejected().WithLabelValues("size").Inc()
		return models.Attachment{}, ErrAttachmentTooLarge
	}

	handle, err := header.Open()
	if err != nil {
		return models.Attachment{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return models.Attachment{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.AttachmentRejected().WithLabelValues("size").Inc()
		return models.Attachment{}, ErrAttachmentTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	mimeType := strings.Split(detected.String(), ";")[0]
	if _, ok := allowedAttachmentTypes[mimeType]; !ok {
		observability.AttachmentRejected().WithLabelValues("type").Inc()
		return models.Attachment{}, fmt.Errorf("%w: %s", ErrAttachmentTypeNotAllowed, mimeType)
	}

	name := fmt.Sprintf("thread_%d/%s", thread.ID, strings.TrimSpace(header.Filename))
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return models.Attachment{}, err
	}

	return models.Attachment{
		Name: header.Filename,
		URL:  url,
		MIME: mimeType,
		Size: int64(buf.Len()),
	}, nil
}

func toThreadResponse(thread models.DocumentThread) dto.ThreadResponse {
	return dto.ThreadResponse{
		ID:             thread.ID,
		StudentID:      thread.StudentID,
		ApplicationID:  thread.ApplicationID,
		FileType:       thread.FileType,
		IsFinalVersion: thread.IsFinalVersion,
		MessageCount:   len(thread.Messages),
		UpdatedAt:      thread.UpdatedAt,
	}
}

func toMessageResponse(message models.ThreadMessage) dto.MessageResponse {
	attachments := make([]dto.AttachmentResponse, 0)
	for _, attachment := range message.AttachmentList() {
		attachments = append(attachments, dto.AttachmentResponse{
			Name: attachment.Name,
			URL:  attachment.URL,
			MIME: attachment.MIME,
			Size: attachment.Size,
		})
	}

	return dto.MessageResponse{
		ID:          message.ID,
		ThreadID:    message.ThreadID,
		AuthorID:    message.AuthorID,
		AuthorRole:  message.AuthorRole,
		Body:        message.Body,
		Attachments: attachments,
		CreatedAt:   message.CreatedAt,
	}
}
