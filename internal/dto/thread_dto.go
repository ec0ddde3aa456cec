package dto

import "time"

// ThreadResponse describes one document thread.
type ThreadResponse struct {
	ID             uint      `json:"id"`
	StudentID      uint      `json:"student_id"`
	ApplicationID  *uint     `json:"application_id,omitempty"`
	FileType       string    `json:"file_type"`
	IsFinalVersion bool      `json:"is_final_version"`
	MessageCount   int       `json:"message_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ThreadCreateRequest opens a document thread.
type ThreadCreateRequest struct {
	StudentID     uint   `json:"student_id" validate:"required"`
	ApplicationID *uint  `json:"application_id"`
	FileType      string `json:"file_type" validate:"required,max=64"`
}

// ThreadFinalRequest toggles the final-version flag.
type ThreadFinalRequest struct {
	IsFinalVersion bool `json:"is_final_version"`
}

// MessageCreateRequest posts into a thread. Body is HTML and is
// sanitized server-side.
type MessageCreateRequest struct {
	Body string `json:"body" validate:"required,max=20000"`
}

// MessageResponse is one post inside a thread.
type MessageResponse struct {
	ID          uint                 `json:"id"`
	ThreadID    uint                 `json:"thread_id"`
	AuthorID    uint                 `json:"author_id"`
	AuthorRole  string               `json:"author_role"`
	Body        string               `json:"body"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse describes one uploaded file on a message.
type AttachmentResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
}

// FeedEvent is the payload broadcast to live thread subscribers.
type FeedEvent struct {
	ThreadID uint            `json:"thread_id"`
	Message  MessageResponse `json:"message"`
	SentAt   time.Time       `json:"sent_at"`
}
