package rules

import (
	"strings"
	"time"
)

// IsLanguageInfoComplete reports whether the student has entered enough
// language information to reason about requirements. Missing sub-records
// fail closed.
func IsLanguageInfoComplete(background *AcademicBackground) bool {
	if background == nil || background.Language == nil {
		return false
	}
	lang := background.Language
	if lang.EnglishPassed == StateUnknown && lang.GermanPassed == StateUnknown {
		return false
	}
	return true
}

// EnglishPassed reports a strict pass of the English requirement. Absent
// records count as not passed.
func EnglishPassed(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.EnglishPassed }) == StatePassed
}

// EnglishNotNeeded reports whether the English requirement is explicitly
// waived.
func EnglishNotNeeded(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.EnglishPassed }) == StateNotNeeded
}

// GermanPassed reports a strict pass of the German requirement.
func GermanPassed(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.GermanPassed }) == StatePassed
}

// GermanNotNeeded reports whether the German requirement is explicitly
// waived.
func GermanNotNeeded(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.GermanPassed }) == StateNotNeeded
}

// GREPassed reports a strict pass of the GRE requirement.
func GREPassed(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.GREPassed }) == StatePassed
}

// GRENotNeeded reports whether the GRE requirement is explicitly waived.
func GRENotNeeded(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.GREPassed }) == StateNotNeeded
}

// GMATPassed reports a strict pass of the GMAT requirement.
func GMATPassed(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.GMATPassed }) == StatePassed
}

// GMATNotNeeded reports whether the GMAT requirement is explicitly waived.
func GMATNotNeeded(background *AcademicBackground) bool {
	return languageFlag(background, func(l *LanguageRecord) TriState { return l.GMATPassed }) == StateNotNeeded
}

func languageFlag(background *AcademicBackground, pick func(*LanguageRecord) TriState) TriState {
	if background == nil || background.Language == nil {
		return StateUnknown
	}
	return pick(background.Language)
}

// GPAValid reports whether the student has a usable GPA on record.
func GPAValid(background *AcademicBackground) bool {
	if background == nil || background.University == nil {
		return false
	}
	return background.University.GPA > 0
}

// IsGraduated reports whether the student's degree is completed.
func IsGraduated(background *AcademicBackground) bool {
	if background == nil || background.University == nil {
		return false
	}
	return background.University.IsGraduated == "Yes"
}

// ProgramLanguageMatches reports whether a program's teaching language
// covers the student's target language. Empty preferences match anything.
func ProgramLanguageMatches(preference ApplicationPreference, program Program) bool {
	target := strings.TrimSpace(preference.TargetLanguage)
	if target == "" {
		return true
	}
	return strings.Contains(strings.ToLower(program.Language), strings.ToLower(target))
}

// EligibleForProgram reports whether the student clears the program's
// graduation gate.
func EligibleForProgram(background *AcademicBackground, program Program) bool {
	if !program.AllowOnlyGraduatedApplicant {
		return true
	}
	return IsGraduated(background)
}

// LanguagesFilled reports whether every language flag is set and every
// pending ("X") test still falls inside the validity window.
func (e *Engine) LanguagesFilled(background *AcademicBackground) bool {
	if background == nil || background.Language == nil {
		return false
	}
	lang := background.Language

	checks := []struct {
		flag TriState
		date *time.Time
	}{
		{lang.EnglishPassed, lang.EnglishTestDate},
		{lang.GermanPassed, lang.GermanTestDate},
		{lang.GREPassed, lang.GRETestDate},
		{lang.GMATPassed, lang.GMATTestDate},
	}

	now := e.now()
	for _, check := range checks {
		if check.flag == StateUnknown {
			return false
		}
		if check.flag != StateTaken {
			continue
		}
		if check.date == nil {
			return false
		}
		if now.Sub(*check.date) > e.cfg.TestDateValidity {
			return false
		}
	}
	return true
}
