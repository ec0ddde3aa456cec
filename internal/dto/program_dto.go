package dto

import (
	"time"

	"github.com/unipath-io/unipath-api/internal/rules"
)

// ProgramResponse is the catalog entry enriched with its derived lock
// status.
type ProgramResponse struct {
	ID                          uint             `json:"id"`
	School                      string           `json:"school"`
	ProgramName                 string           `json:"program_name"`
	Degree                      string           `json:"degree"`
	Country                     string           `json:"country"`
	Language                    string           `json:"lang"`
	Semester                    string           `json:"semester"`
	ApplicationDeadline         string           `json:"application_deadline"`
	UniAssist                   string           `json:"uni_assist"`
	IsRLSpecific                bool             `json:"is_rl_specific"`
	RLRequired                  string           `json:"rl_required"`
	MLRequired                  string           `json:"ml_required"`
	SOPRequired                 string           `json:"sop_required"`
	EssayRequired               string           `json:"essay_required"`
	AllowOnlyGraduatedApplicant bool             `json:"allow_only_graduated_applicant"`
	UpdatedAt                   *time.Time       `json:"updated_at"`
	LockStatus                  rules.LockStatus `json:"lock_status"`
}

// ProgramListResponse pages catalog results.
type ProgramListResponse struct {
	Programs []ProgramResponse `json:"programs"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProgramUpsertRequest creates or updates a catalog entry.
type ProgramUpsertRequest struct {
	School                      string `json:"school" validate:"required,max=255"`
	ProgramName                 string `json:"program_name" validate:"required,max=255"`
	Degree                      string `json:"degree" validate:"max=64"`
	Country                     string `json:"country" validate:"required,min=2,max=8"`
	Language                    string `json:"lang" validate:"max=64"`
	Semester                    string `json:"semester" validate:"omitempty,oneof=WS SS"`
	ApplicationDeadline         string `json:"application_deadline" validate:"max=64"`
	RLRequired                  string `json:"rl_required" validate:"max=8"`
	MLRequired                  string `json:"ml_required" validate:"omitempty,oneof=yes no"`
	SOPRequired                 string `json:"sop_required" validate:"omitempty,oneof=yes no"`
	PHSRequired                 string `json:"phs_required" validate:"omitempty,oneof=yes no"`
	EssayRequired               string `json:"essay_required" validate:"omitempty,oneof=yes no"`
	PortfolioRequired           string `json:"portfolio_required" validate:"omitempty,oneof=yes no"`
	SupplementaryFormRequired   string `json:"supplementary_form_required" validate:"omitempty,oneof=yes no"`
	ScholarshipFormRequired     string `json:"scholarship_form_required" validate:"omitempty,oneof=yes no"`
	CurriculumAnalysisRequired  string `json:"curriculum_analysis_required" validate:"omitempty,oneof=yes no"`
	IsRLSpecific                bool   `json:"is_rl_specific"`
	UniAssist                   string `json:"uni_assist" validate:"max=32"`
	ApplicationPortalA          string `json:"application_portal_a" validate:"omitempty,url"`
	ApplicationPortalB          string `json:"application_portal_b" validate:"omitempty,url"`
	AllowOnlyGraduatedApplicant bool   `json:"allow_only_graduated_applicant"`
}

// CatalogImportResult summarises a bulk catalog import.
type CatalogImportResult struct {
	Imported int      `json:"imported"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}
