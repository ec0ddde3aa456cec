package rules

import "strings"

// ChecklistRow is one named contribution to the progress percentage. A
// row only counts towards the denominator when Applicable; Earned is
// clamped to [0, 1].
type ChecklistRow struct {
	Name       string  `json:"name"`
	Applicable bool    `json:"applicable"`
	Earned     float64 `json:"earned"`
}

// ProgressReport is the scored checklist for one application.
type ProgressReport struct {
	Rows    []ChecklistRow `json:"rows"`
	Percent int            `json:"percent"`
}

// ReadinessGates are the independent conditions an application must clear
// before submission is allowed.
type ReadinessGates struct {
	DocumentsReady bool `json:"documents_ready"`
	VPDUploaded    bool `json:"vpd_uploaded"`
	CVFinished     bool `json:"cv_finished"`
	ReadyToSubmit  bool `json:"ready_to_submit"`
}

// Progress scores one application against the completion checklist and
// returns the integer percentage in [0, 100]. A checklist with no
// applicable rows scores 0, never NaN.
func (e *Engine) Progress(student Student, application Application) ProgressReport {
	background := student.AcademicBackground
	program := application.Program

	rows := []ChecklistRow{
		{
			Name:       "general_documents",
			Applicable: true,
			Earned:     finalThreadRatio(student.GeneralThreads),
		},
		languageRow("english_test", background, func(l *LanguageRecord) TriState { return l.EnglishPassed }),
		languageRow("testdaf", background, func(l *LanguageRecord) TriState { return l.GermanPassed }),
		languageRow("gre", background, func(l *LanguageRecord) TriState { return l.GREPassed }),
		languageRow("gmat", background, func(l *LanguageRecord) TriState { return l.GMATPassed }),
		{
			Name:       "portal_a_credentials",
			Applicable: strings.TrimSpace(program.ApplicationPortalA) != "",
			Earned:     boolPoint(application.PortalACredentialsFilled),
		},
		{
			Name:       "portal_b_credentials",
			Applicable: strings.TrimSpace(program.ApplicationPortalB) != "",
			Earned:     boolPoint(application.PortalBCredentialsFilled),
		},
		{
			Name:       "application_documents",
			Applicable: len(application.Threads) > 0 || hasAnyRequirement(program),
			Earned:     finalThreadRatio(application.Threads),
		},
		{
			Name:       "uni_assist_vpd",
			Applicable: requiresVPD(program),
			Earned:     boolPoint(strings.TrimSpace(application.UniAssist.VPDFilePath) != ""),
		},
		{
			Name:       "submitted",
			Applicable: true,
			Earned:     boolPoint(application.SubmissionStatus() == SubmissionSubmitted),
		},
	}

	possible := 0.0
	earned := 0.0
	for i := range rows {
		if !rows[i].Applicable {
			rows[i].Earned = 0
			continue
		}
		if rows[i].Earned < 0 {
			rows[i].Earned = 0
		}
		if rows[i].Earned > 1 {
			rows[i].Earned = 1
		}
		possible++
		earned += rows[i].Earned
	}

	percent := 0
	if possible > 0 {
		percent = int(100 * earned / possible)
	}
	if percent > 100 {
		percent = 100
	}

	return ProgressReport{Rows: rows, Percent: percent}
}

// Readiness evaluates the submission gates for one application.
func (e *Engine) Readiness(student Student, application Application) ReadinessGates {
	gates := ReadinessGates{
		DocumentsReady: e.IsProgramSubmissionReady(application.Program, application.Threads),
		VPDUploaded:    e.IsVPDUploaded(application),
		CVFinished:     e.IsCVFinished(student.GeneralThreads),
	}
	gates.ReadyToSubmit = gates.DocumentsReady && gates.VPDUploaded && gates.CVFinished
	return gates
}

// IsProgramSubmissionReady reports whether every ML, RL and Essay thread
// the program requires exists and is marked final.
func (e *Engine) IsProgramSubmissionReady(program Program, threads []DocumentThread) bool {
	status := e.ProgramDocumentStatus(program, threads)
	for _, entry := range status.Missing {
		switch entry.DocKey {
		case "ml_required", "rl_required", "essay_required":
			return false
		}
	}

	for _, thread := range threads {
		switch {
		case thread.FileType == "ML", thread.FileType == "Essay":
			if !thread.IsFinalVersion {
				return false
			}
		case strings.HasPrefix(thread.FileType, RLSpecificPrefix):
			if !thread.IsFinalVersion {
				return false
			}
		}
	}
	return true
}

// IsVPDUploaded reports whether the Uni-Assist pre-check is satisfied.
// Programs without a VPD requirement trivially pass.
func (e *Engine) IsVPDUploaded(application Application) bool {
	if !requiresVPD(application.Program) {
		return true
	}
	return strings.TrimSpace(application.UniAssist.VPDFilePath) != ""
}

// IsCVFinished reports whether a finalised CV thread exists among the
// student's general documents.
func (e *Engine) IsCVFinished(generalThreads []DocumentThread) bool {
	for _, thread := range generalThreads {
		if thread.FileType == "CV" && thread.IsFinalVersion {
			return true
		}
	}
	return false
}

func languageRow(name string, background *AcademicBackground, pick func(*LanguageRecord) TriState) ChecklistRow {
	flag := languageFlag(background, pick)
	return ChecklistRow{
		Name:       name,
		Applicable: flag != StateNotNeeded,
		Earned:     boolPoint(flag == StatePassed),
	}
}

func finalThreadRatio(threads []DocumentThread) float64 {
	if len(threads) == 0 {
		return 0
	}
	final := 0
	for _, thread := range threads {
		if thread.IsFinalVersion {
			final++
		}
	}
	return float64(final) / float64(len(threads))
}

func hasAnyRequirement(program Program) bool {
	for _, key := range requirementKeys {
		if isRequired(key.value(program)) {
			return true
		}
	}
	if program.IsRLSpecific {
		if _, ok := rlCount(program.RLRequired); ok {
			return true
		}
	}
	return false
}

func requiresVPD(program Program) bool {
	return strings.Contains(strings.ToUpper(program.UniAssist), "VPD")
}

func boolPoint(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
