package dto

import "github.com/unipath-io/unipath-api/internal/rules"

// StudentOverviewResponse is the aggregated dashboard for one student:
// per-application progress plus the student-level derived facts.
type StudentOverviewResponse struct {
	StudentID uint   `json:"student_id"`
	Name      string `json:"name"`

	LanguageInfoComplete bool `json:"language_info_complete"`
	LanguagesFilled      bool `json:"languages_filled"`

	GeneralDocuments rules.DocumentStatus    `json:"general_documents"`
	CVDeadline       rules.CVDeadlineSummary `json:"cv_deadline"`

	Applications []ApplicationResponse `json:"applications"`

	// OverallPercent averages the per-application progress of decided
	// applications; 0 when none are decided.
	OverallPercent int `json:"overall_percent"`
}

// StudentBackgroundUpdateRequest replaces the academic background
// sub-record.
type StudentBackgroundUpdateRequest struct {
	University *UniversityPayload `json:"university"`
	Language   *LanguagePayload   `json:"language"`
}

// UniversityPayload mirrors the stored university sub-record.
type UniversityPayload struct {
	GPA           float64 `json:"gpa" validate:"gte=0"`
	MaxGPA        float64 `json:"max_gpa" validate:"gte=0"`
	IsGraduated   string  `json:"is_graduated" validate:"omitempty,oneof=Yes No pending"`
	HighestDegree string  `json:"highest_degree" validate:"max=64"`
}

// LanguagePayload mirrors the stored language sub-record.
type LanguagePayload struct {
	EnglishIsPassed string `json:"english_isPassed" validate:"omitempty,oneof=- -- O X"`
	GermanIsPassed  string `json:"german_isPassed" validate:"omitempty,oneof=- -- O X"`
	GREIsPassed     string `json:"gre_isPassed" validate:"omitempty,oneof=- -- O X"`
	GMATIsPassed    string `json:"gmat_isPassed" validate:"omitempty,oneof=- -- O X"`
	EnglishTestDate string `json:"english_test_date" validate:"omitempty,datetime=2006-01-02"`
	GermanTestDate  string `json:"german_test_date" validate:"omitempty,datetime=2006-01-02"`
	GRETestDate     string `json:"gre_test_date" validate:"omitempty,datetime=2006-01-02"`
	GMATTestDate    string `json:"gmat_test_date" validate:"omitempty,datetime=2006-01-02"`
}
