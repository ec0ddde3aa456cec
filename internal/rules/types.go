package rules

import "time"

// TriState models the four-valued status flags used across student and
// application records: unknown/unset, explicitly not needed, passed, and
// taken-but-pending-validity.
type TriState string

const (
	StateUnknown   TriState = "-"
	StateNotNeeded TriState = "--"
	StatePassed    TriState = "O"
	StateTaken     TriState = "X"
)

// Semester identifies the intake a program admits for.
type Semester string

const (
	SemesterWinter Semester = "WS"
	SemesterSummer Semester = "SS"
)

// LanguageRecord captures a student's standardised test state. Test dates
// are only meaningful when the matching flag is StateTaken.
type LanguageRecord struct {
	EnglishPassed TriState
	GermanPassed  TriState
	GREPassed     TriState
	GMATPassed    TriState

	EnglishTestDate *time.Time
	GermanTestDate  *time.Time
	GRETestDate     *time.Time
	GMATTestDate    *time.Time
}

// University describes the academic history sub-record.
type University struct {
	GPA          float64
	MaxGPA       float64
	IsGraduated  string // "Yes", "No", "pending"
	HighestDegree string
}

// AcademicBackground groups the optional academic sub-records of a
// student. Either pointer may be nil on sparse legacy records.
type AcademicBackground struct {
	University *University
	Language   *LanguageRecord
}

// ApplicationPreference holds the student's stated targets.
type ApplicationPreference struct {
	TargetDegree    string
	TargetLanguage  string
	TargetSemester  Semester
	ApplicationYear int
}

// Program is a read-only catalog snapshot.
type Program struct {
	Country  string
	Language string
	Semester Semester

	// ApplicationDeadline is a raw "MM-DD" pattern or a string
	// containing "Rolling".
	ApplicationDeadline string

	// Requirement flags are "yes"/"no"; RLRequired may instead hold a
	// numeric count when IsRLSpecific is set.
	RLRequired                 string
	MLRequired                 string
	SOPRequired                string
	PHSRequired                string
	EssayRequired              string
	PortfolioRequired          string
	SupplementaryFormRequired  string
	ScholarshipFormRequired    string
	CurriculumAnalysisRequired string
	IsRLSpecific               bool

	// UniAssist may contain "VPD" and/or "FULL".
	UniAssist string

	ApplicationPortalA string
	ApplicationPortalB string

	AllowOnlyGraduatedApplicant bool

	UpdatedAt *time.Time
}

// UniAssistRecord tracks the per-application Uni-Assist state.
type UniAssistRecord struct {
	Status      string
	IsPaid      bool
	VPDFilePath string
}

// DocumentThread is a document-collection unit tied to one file type.
type DocumentThread struct {
	FileType       string
	IsFinalVersion bool
	UpdatedAt      *time.Time
}

// Application links a student to a program with per-application state.
type Application struct {
	Program Program

	Decided TriState
	// Closed stores the overloaded submission state: "-" not yet,
	// "X" withdrawn, "O" submitted. Use SubmissionState and IsWithdrawn
	// rather than reading it directly.
	Closed    TriState
	Admission TriState

	FinalEnrolment bool

	// IsLocked is the non-approval-country editing override. nil on
	// records that predate the lock feature.
	IsLocked *bool

	Year int

	UniAssist UniAssistRecord

	PortalACredentialsFilled bool
	PortalBCredentialsFilled bool

	Threads []DocumentThread
}

// SubmissionState reports whether the application has been submitted,
// independent of withdrawal.
type SubmissionState string

const (
	SubmissionNotYet    SubmissionState = "not_submitted"
	SubmissionSubmitted SubmissionState = "submitted"
)

// IsDecided reports whether the student has committed to this program.
func (a Application) IsDecided() bool {
	return a.Decided == StatePassed
}

// IsWithdrawn reports whether the application was withdrawn.
func (a Application) IsWithdrawn() bool {
	return a.Closed == StateTaken
}

// SubmissionStatus splits the overloaded closed flag into an explicit
// submission state.
func (a Application) SubmissionStatus() SubmissionState {
	if a.Closed == StatePassed {
		return SubmissionSubmitted
	}
	return SubmissionNotYet
}

// Student is the top-level snapshot supplied per evaluation.
type Student struct {
	AcademicBackground *AcademicBackground
	Preference         ApplicationPreference
	Applications       []Application

	// GeneralThreads are the student-level document threads (CV,
	// general recommendation letters, ...).
	GeneralThreads []DocumentThread
}
