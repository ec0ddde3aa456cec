package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/unipath-io/unipath-api/internal/rules"
)

// Student represents an applicant managed on the platform.
type Student struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:255;not null" json:"name"`
	Email string `gorm:"size:255;uniqueIndex;not null" json:"email"`

	// AcademicBackground and Preference are sparse nested records kept
	// as JSON documents, mirroring the shape the frontend edits.
	AcademicBackground datatypes.JSON `gorm:"type:json" json:"academic_background"`
	Preference         datatypes.JSON `gorm:"type:json" json:"application_preference"`

	// AgentIDs and EditorIDs hold the staff assigned to this student.
	AgentIDs  datatypes.JSON `gorm:"type:json" json:"agents"`
	EditorIDs datatypes.JSON `gorm:"type:json" json:"editors"`

	Applications []Application    `json:"applications"`
	Threads      []DocumentThread `json:"threads"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AcademicBackgroundDocument is the stored shape of the academic
// background JSON column.
type AcademicBackgroundDocument struct {
	University *UniversityDocument `json:"university,omitempty"`
	Language   *LanguageDocument   `json:"language,omitempty"`
}

// UniversityDocument captures the academic history sub-record.
type UniversityDocument struct {
	GPA           float64 `json:"gpa"`
	MaxGPA        float64 `json:"max_gpa"`
	IsGraduated   string  `json:"is_graduated"`
	HighestDegree string  `json:"highest_degree"`
}

// LanguageDocument captures the standardised test sub-record. Flags use
// the tri-state convention: "-" unknown, "--" not needed, "O" passed,
// "X" taken pending validity.
type LanguageDocument struct {
	EnglishIsPassed string     `json:"english_isPassed"`
	GermanIsPassed  string     `json:"german_isPassed"`
	GREIsPassed     string     `json:"gre_isPassed"`
	GMATIsPassed    string     `json:"gmat_isPassed"`
	EnglishTestDate *time.Time `json:"english_test_date,omitempty"`
	GermanTestDate  *time.Time `json:"german_test_date,omitempty"`
	GRETestDate     *time.Time `json:"gre_test_date,omitempty"`
	GMATTestDate    *time.Time `json:"gmat_test_date,omitempty"`
}

// PreferenceDocument is the stored shape of the application preference
// JSON column.
type PreferenceDocument struct {
	TargetDegree    string `json:"target_degree"`
	TargetLanguage  string `json:"target_program_language"`
	TargetSemester  string `json:"target_application_semester"`
	ApplicationYear int    `json:"expected_application_year"`
}

// BackgroundDocument decodes the academic background column. Malformed
// or empty payloads yield nil, matching the fail-soft input contract of
// the rules engine.
func (s Student) BackgroundDocument() *AcademicBackgroundDocument {
	if len(s.AcademicBackground) == 0 {
		return nil
	}
	var doc AcademicBackgroundDocument
	if err := json.Unmarshal(s.AcademicBackground, &doc); err != nil {
		return nil
	}
	return &doc
}

// SetBackgroundDocument stores the academic background column.
func (s *Student) SetBackgroundDocument(doc AcademicBackgroundDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.AcademicBackground = datatypes.JSON(data)
	return nil
}

// PreferenceDoc decodes the preference column, returning a zero value
// for absent or malformed payloads.
func (s Student) PreferenceDoc() PreferenceDocument {
	var doc PreferenceDocument
	if len(s.Preference) == 0 {
		return doc
	}
	_ = json.Unmarshal(s.Preference, &doc)
	return doc
}

// SetPreferenceDoc stores the preference column.
func (s *Student) SetPreferenceDoc(doc PreferenceDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.Preference = datatypes.JSON(data)
	return nil
}

// Snapshot converts the stored student, including applications and
// threads, into the immutable shape the rules engine consumes.
func (s Student) Snapshot() rules.Student {
	snapshot := rules.Student{
		Preference: preferenceSnapshot(s.PreferenceDoc()),
	}

	if doc := s.BackgroundDocument(); doc != nil {
		snapshot.AcademicBackground = backgroundSnapshot(doc)
	}

	for _, thread := range s.Threads {
		if thread.ApplicationID == nil {
			snapshot.GeneralThreads = append(snapshot.GeneralThreads, thread.Snapshot())
		}
	}

	for _, application := range s.Applications {
		snapshot.Applications = append(snapshot.Applications, application.Snapshot())
	}

	return snapshot
}

func backgroundSnapshot(doc *AcademicBackgroundDocument) *rules.AcademicBackground {
	background := &rules.AcademicBackground{}
	if doc.University != nil {
		background.University = &rules.University{
			GPA:           doc.University.GPA,
			MaxGPA:        doc.University.MaxGPA,
			IsGraduated:   doc.University.IsGraduated,
			HighestDegree: doc.University.HighestDegree,
		}
	}
	if doc.Language != nil {
		background.Language = &rules.LanguageRecord{
			EnglishPassed:   triState(doc.Language.EnglishIsPassed),
			GermanPassed:    triState(doc.Language.GermanIsPassed),
			GREPassed:       triState(doc.Language.GREIsPassed),
			GMATPassed:      triState(doc.Language.GMATIsPassed),
			EnglishTestDate: doc.Language.EnglishTestDate,
			GermanTestDate:  doc.Language.GermanTestDate,
			GRETestDate:     doc.Language.GRETestDate,
			GMATTestDate:    doc.Language.GMATTestDate,
		}
	}
	return background
}

func preferenceSnapshot(doc PreferenceDocument) rules.ApplicationPreference {
	return rules.ApplicationPreference{
		TargetDegree:    doc.TargetDegree,
		TargetLanguage:  doc.TargetLanguage,
		TargetSemester:  rules.Semester(doc.TargetSemester),
		ApplicationYear: doc.ApplicationYear,
	}
}

// triState normalises a raw flag, defaulting unrecognised values to
// unknown so absent data is treated as "not satisfied".
func triState(raw string) rules.TriState {
	switch raw {
	case string(rules.StatePassed):
		return rules.StatePassed
	case string(rules.StateTaken):
		return rules.StateTaken
	case string(rules.StateNotNeeded):
		return rules.StateNotNeeded
	default:
		return rules.StateUnknown
	}
}
