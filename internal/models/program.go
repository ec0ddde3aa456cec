package models

import (
	"time"

	"github.com/unipath-io/unipath-api/internal/rules"
)

// Program is a catalog entry describing one study program. Requirement
// flags use "yes"/"no" strings; RLRequired may hold a numeric count for
// RL-specific programs. DataUpdatedAt tracks catalog maintenance and
// drives the staleness lock, independent of the row's UpdatedAt.
type Program struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	School     string `gorm:"size:255;not null" json:"school"`
	ProgramName string `gorm:"size:255;not null" json:"program_name"`
	Degree     string `gorm:"size:64" json:"degree"`
	Country    string `gorm:"size:8;index" json:"country"`
	Language   string `gorm:"size:64" json:"lang"`
	Semester   string `gorm:"size:8" json:"semester"`

	ApplicationDeadline string `gorm:"size:64" json:"application_deadline"`

	RLRequired                 string `gorm:"size:8" json:"rl_required"`
	MLRequired                 string `gorm:"size:8" json:"ml_required"`
	SOPRequired                string `gorm:"size:8" json:"sop_required"`
	PHSRequired                string `gorm:"size:8" json:"phs_required"`
	EssayRequired              string `gorm:"size:8" json:"essay_required"`
	PortfolioRequired          string `gorm:"size:8" json:"portfolio_required"`
	SupplementaryFormRequired  string `gorm:"size:8" json:"supplementary_form_required"`
	ScholarshipFormRequired    string `gorm:"size:8" json:"scholarship_form_required"`
	CurriculumAnalysisRequired string `gorm:"size:8" json:"curriculum_analysis_required"`
	IsRLSpecific               bool   `json:"is_rl_specific"`

	UniAssist string `gorm:"size:32" json:"uni_assist"`

	ApplicationPortalA string `gorm:"size:512" json:"application_portal_a"`
	ApplicationPortalB string `gorm:"size:512" json:"application_portal_b"`

	AllowOnlyGraduatedApplicant bool `json:"allow_only_graduated_applicant"`

	DataUpdatedAt *time.Time `json:"updated_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// Snapshot converts the catalog row into the rules engine shape.
func (p Program) Snapshot() rules.Program {
	return rules.Program{
		Country:                     p.Country,
		Language:                    p.Language,
		Semester:                    rules.Semester(p.Semester),
		ApplicationDeadline:         p.ApplicationDeadline,
		RLRequired:                  p.RLRequired,
		MLRequired:                  p.MLRequired,
		SOPRequired:                 p.SOPRequired,
		PHSRequired:                 p.PHSRequired,
		EssayRequired:               p.EssayRequired,
		PortfolioRequired:           p.PortfolioRequired,
		SupplementaryFormRequired:   p.SupplementaryFormRequired,
		ScholarshipFormRequired:     p.ScholarshipFormRequired,
		CurriculumAnalysisRequired:  p.CurriculumAnalysisRequired,
		IsRLSpecific:                p.IsRLSpecific,
		UniAssist:                   p.UniAssist,
		ApplicationPortalA:          p.ApplicationPortalA,
		ApplicationPortalB:          p.ApplicationPortalB,
		AllowOnlyGraduatedApplicant: p.AllowOnlyGraduatedApplicant,
		UpdatedAt:                   p.DataUpdatedAt,
	}
}
