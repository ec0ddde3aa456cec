package dto

import "github.com/unipath-io/unipath-api/internal/rules"

// ApplicationResponse is the stored application together with every
// derived fact the frontend renders.
type ApplicationResponse struct {
	ID             uint   `json:"id"`
	StudentID      uint   `json:"student_id"`
	ProgramID      uint   `json:"program_id"`
	School         string `json:"school"`
	ProgramName    string `json:"program_name"`
	Decided        string `json:"decided"`
	Closed         string `json:"closed"`
	Admission      string `json:"admission"`
	FinalEnrolment bool   `json:"final_enrolment"`

	Evaluation ApplicationEvaluation `json:"evaluation"`
}

// ApplicationEvaluation bundles the rule engine outputs for one
// application.
type ApplicationEvaluation struct {
	LockStatus     rules.LockStatus     `json:"lock_status"`
	Deadline       string               `json:"deadline"`
	DaysLeft       *int                 `json:"days_left,omitempty"`
	DocumentStatus rules.DocumentStatus `json:"document_status"`
	Progress       rules.ProgressReport `json:"progress"`
	Readiness      rules.ReadinessGates `json:"readiness"`
}

// ApplicationCreateRequest adds a program to a student's application
// list.
type ApplicationCreateRequest struct {
	StudentID       uint `json:"student_id" validate:"required"`
	ProgramID       uint `json:"program_id" validate:"required"`
	ApplicationYear int  `json:"application_year" validate:"omitempty,gte=2000,lte=2100"`
}

// ApplicationDecisionRequest flips the decided flag.
type ApplicationDecisionRequest struct {
	Decided string `json:"decided" validate:"required,oneof=- O X"`
}

// ApplicationSubmitRequest marks the application submitted or withdrawn.
type ApplicationSubmitRequest struct {
	Closed string `json:"closed" validate:"required,oneof=- O X"`
}

// ApplicationLockRequest toggles the non-approval-country lock override.
type ApplicationLockRequest struct {
	IsLocked bool `json:"is_locked"`
}

// UniAssistUpdateRequest records Uni-Assist progress on an application.
type UniAssistUpdateRequest struct {
	Status      string `json:"status" validate:"max=32"`
	IsPaid      bool   `json:"is_paid"`
	VPDFilePath string `json:"vpd_file_path" validate:"max=512"`
}
