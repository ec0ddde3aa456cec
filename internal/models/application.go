package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/unipath-io/unipath-api/internal/rules"
)

// Tri-state flag values stored on application rows.
const (
	FlagUnset     = "-"
	FlagNotNeeded = "--"
	FlagYes       = "O"
	FlagNo        = "X"
)

// Application links a student to a program together with per-application
// workflow state.
type Application struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	StudentID uint `gorm:"index;not null" json:"student_id"`
	ProgramID uint `gorm:"index;not null" json:"program_id"`

	Program Program `json:"program"`

	// Decided, Closed and Admission use the tri-state convention.
	// Closed overloads submission and withdrawal: "-" not yet, "X"
	// withdrawn, "O" submitted.
	Decided   string `gorm:"size:4;default:'-'" json:"decided"`
	Closed    string `gorm:"size:4;default:'-'" json:"closed"`
	Admission string `gorm:"size:4;default:'-'" json:"admission"`

	FinalEnrolment bool `json:"final_enrolment"`

	// IsLocked is the editing override for non-approval countries. It
	// is nullable: rows created before the lock feature carry NULL and
	// default to unlocked.
	IsLocked *bool `json:"is_locked"`

	ApplicationYear int `json:"application_year"`

	UniAssist datatypes.JSON `gorm:"type:json" json:"uni_assist"`

	PortalACredentialsFilled bool `json:"portal_a_credentials_filled"`
	PortalBCredentialsFilled bool `json:"portal_b_credentials_filled"`

	Threads []DocumentThread `json:"doc_modification_thread"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UniAssistDocument is the stored shape of the uni_assist JSON column.
type UniAssistDocument struct {
	Status      string `json:"status"`
	IsPaid      bool   `json:"is_paid"`
	VPDFilePath string `json:"vpd_file_path"`
}

// UniAssistDoc decodes the uni_assist column, returning the zero value
// for absent or malformed payloads.
func (a Application) UniAssistDoc() UniAssistDocument {
	var doc UniAssistDocument
	if len(a.UniAssist) == 0 {
		return doc
	}
	_ = json.Unmarshal(a.UniAssist, &doc)
	return doc
}

// SetUniAssistDoc stores the uni_assist column.
func (a *Application) SetUniAssistDoc(doc UniAssistDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	a.UniAssist = datatypes.JSON(data)
	return nil
}

// Snapshot converts the stored application, its preloaded program and
// threads into the rules engine shape.
func (a Application) Snapshot() rules.Application {
	uniAssist := a.UniAssistDoc()

	snapshot := rules.Application{
		Program:        a.Program.Snapshot(),
		Decided:        rules.TriState(triState(a.Decided)),
		Closed:         rules.TriState(triState(a.Closed)),
		Admission:      rules.TriState(triState(a.Admission)),
		FinalEnrolment: a.FinalEnrolment,
		IsLocked:       a.IsLocked,
		Year:           a.ApplicationYear,
		UniAssist: rules.UniAssistRecord{
			Status:      uniAssist.Status,
			IsPaid:      uniAssist.IsPaid,
			VPDFilePath: uniAssist.VPDFilePath,
		},
		PortalACredentialsFilled: a.PortalACredentialsFilled,
		PortalBCredentialsFilled: a.PortalBCredentialsFilled,
	}

	for _, thread := range a.Threads {
		snapshot.Threads = append(snapshot.Threads, thread.Snapshot())
	}

	return snapshot
}
