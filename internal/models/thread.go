package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/unipath-io/unipath-api/internal/rules"
)

// DocumentThread is a document-collection discussion tied to one file
// type. Threads with a nil ApplicationID are student-level general
// documents (CV, shared recommendation letters); the rest belong to a
// single application.
type DocumentThread struct {
	ID            uint  `gorm:"primaryKey" json:"id"`
	StudentID     uint  `gorm:"index;not null" json:"student_id"`
	ApplicationID *uint `gorm:"index" json:"application_id"`

	// FileType names the document kind: CV, ML, SOP, Essay, RL_A,
	// Recommendation_Letter_A, ...
	FileType       string `gorm:"size:64;not null;index" json:"file_type"`
	IsFinalVersion bool   `json:"is_final_version"`

	// OutsourcedUserIDs lists the editors assigned to this thread.
	OutsourcedUserIDs datatypes.JSON `gorm:"type:json" json:"outsourced_user_id"`

	Messages []ThreadMessage `gorm:"foreignKey:ThreadID" json:"messages"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThreadMessage is one post inside a document thread.
type ThreadMessage struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	ThreadID uint `gorm:"index;not null" json:"thread_id"`

	AuthorID   uint   `gorm:"not null" json:"author_id"`
	AuthorRole string `gorm:"size:16" json:"author_role"`

	// Body holds sanitized HTML.
	Body string `gorm:"type:text" json:"body"`

	// Attachments stores the uploaded file descriptors.
	Attachments datatypes.JSON `gorm:"type:json" json:"attachments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment describes one uploaded file on a message.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
}

// AttachmentList decodes the attachments column, degrading to an empty
// slice on malformed payloads.
func (m ThreadMessage) AttachmentList() []Attachment {
	if len(m.Attachments) == 0 {
		return nil
	}
	var attachments []Attachment
	if err := json.Unmarshal(m.Attachments, &attachments); err != nil {
		return nil
	}
	return attachments
}

// SetAttachmentList stores the attachments column.
func (m *ThreadMessage) SetAttachmentList(attachments []Attachment) error {
	if attachments == nil {
		m.Attachments = datatypes.JSON([]byte("[]"))
		return nil
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return err
	}
	m.Attachments = datatypes.JSON(data)
	return nil
}

// Snapshot converts the thread into the rules engine shape.
func (t DocumentThread) Snapshot() rules.DocumentThread {
	updatedAt := t.UpdatedAt
	return rules.DocumentThread{
		FileType:       t.FileType,
		IsFinalVersion: t.IsFinalVersion,
		UpdatedAt:      &updatedAt,
	}
}
