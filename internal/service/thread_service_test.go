package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/rules"
)

type storageStub struct {
	names []string
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	s.names = append(s.names, name)
	return "https://cdn.example.com/" + name, nil
}

type feedStub struct {
	events []dto.FeedEvent
}

func (f *feedStub) PublishMessage(ctx context.Context, event dto.FeedEvent) {
	f.events = append(f.events, event)
}

func newThreadTestService(db *gorm.DB, storage FileStorage, feed FeedPublisher) ThreadService {
	return NewThreadService(
		repository.NewThreadRepository(db),
		repository.NewApplicationRepository(db),
		rules.New(rules.Config{}),
		storage,
		feed,
		validator.New(validator.WithRequiredStructEnabled()),
		1,
		zerolog.Nop(),
	)
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"attachments\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["attachments"]
	require.Len(t, files, 1)
	return files[0]
}

func TestThreadServicePostMessageSanitizesAndPublishes(t *testing.T) {
	db := openTestDB(t, "file:threadsvc_post?mode=memory&cache=shared")
	storage := &storageStub{}
	feed := &feedStub{}
	svc := newThreadTestService(db, storage, feed)
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.thread@example.com"}
	require.NoError(t, db.Create(&student).Error)

	thread, err := svc.Create(ctx, dto.ThreadCreateRequest{StudentID: student.ID, FileType: "CV"})
	require.NoError(t, err)

	body := `<p>Updated the draft.</p><br><script>alert("x")</script>`
	message, err := svc.PostMessage(ctx, thread.ID, 7, "editor", dto.MessageCreateRequest{Body: body}, nil)
	require.NoError(t, err)
	require.Contains(t, message.Body, "Updated the draft.")
	require.NotContains(t, message.Body, "script")

	require.Len(t, feed.events, 1)
	require.Equal(t, thread.ID, feed.events[0].ThreadID)
	require.Equal(t, message.ID, feed.events[0].Message.ID)
}

func TestThreadServiceAttachmentValidation(t *testing.T) {
	db := openTestDB(t, "file:threadsvc_attach?mode=memory&cache=shared")
	storage := &storageStub{}
	svc := newThreadTestService(db, storage, &feedStub{})
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.attach@example.com"}
	require.NoError(t, db.Create(&student).Error)

	thread, err := svc.Create(ctx, dto.ThreadCreateRequest{StudentID: student.ID, FileType: "ML"})
	require.NoError(t, err)

	oversized := buildFileHeader(t, "draft.pdf", bytes.Repeat([]byte("a"), 2*1024*1024))
	_, err = svc.PostMessage(ctx, thread.ID, 1, "student", dto.MessageCreateRequest{Body: "draft"}, []*multipart.FileHeader{oversized})
	require.ErrorIs(t, err, ErrAttachmentTooLarge)

	// zip payloads are detected by content, not filename
	zipBytes := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 64)...)
	disguised := buildFileHeader(t, "draft.pdf", zipBytes)
	_, err = svc.PostMessage(ctx, thread.ID, 1, "student", dto.MessageCreateRequest{Body: "draft"}, []*multipart.FileHeader{disguised})
	require.ErrorIs(t, err, ErrAttachmentTypeNotAllowed)

	pdf := buildFileHeader(t, "draft.pdf", []byte("%PDF-1.4 test document"))
	message, err := svc.PostMessage(ctx, thread.ID, 1, "student", dto.MessageCreateRequest{Body: "draft"}, []*multipart.FileHeader{pdf})
	require.NoError(t, err)
	require.Len(t, message.Attachments, 1)
	require.Equal(t, "application/pdf", message.Attachments[0].MIME)
	require.Contains(t, message.Attachments[0].URL, "draft.pdf")
	require.Len(t, storage.names, 1)
}

func TestThreadServiceRejectsEditsOnLockedApplication(t *testing.T) {
	db := openTestDB(t, "file:threadsvc_lock?mode=memory&cache=shared")
	svc := newThreadTestService(db, &storageStub{}, &feedStub{})
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.threadlock@example.com"}
	require.NoError(t, db.Create(&student).Error)

	stale := time.Now().Add(-400 * 24 * time.Hour)
	program := models.Program{School: "Test University", ProgramName: "M.Sc. Data Engineering", Country: "de", DataUpdatedAt: &stale}
	require.NoError(t, db.Create(&program).Error)

	application := models.Application{StudentID: student.ID, ProgramID: program.ID, Decided: models.FlagYes, Closed: models.FlagUnset, Admission: models.FlagUnset}
	require.NoError(t, db.Create(&application).Error)

	_, err := svc.Create(ctx, dto.ThreadCreateRequest{StudentID: student.ID, ApplicationID: &application.ID, FileType: "ML"})
	require.ErrorIs(t, err, ErrThreadLocked)

	// student-level threads are never lock-gated
	thread, err := svc.Create(ctx, dto.ThreadCreateRequest{StudentID: student.ID, FileType: "CV"})
	require.NoError(t, err)

	updated, err := svc.SetFinalVersion(ctx, thread.ID, dto.ThreadFinalRequest{IsFinalVersion: true})
	require.NoError(t, err)
	require.True(t, updated.IsFinalVersion)
}
