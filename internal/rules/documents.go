package rules

import (
	"strconv"
	"strings"
)

// DocumentCounts quantifies a recommendation letter mismatch.
type DocumentCounts struct {
	Required int `json:"required"`
	Provided int `json:"provided"`
	Delta    int `json:"delta"`
}

// DocumentEntry identifies one missing or superfluous document.
type DocumentEntry struct {
	DocKey   string          `json:"doc_key"`
	FileType string          `json:"file_type"`
	Counts   *DocumentCounts `json:"counts,omitempty"`
}

// DocumentStatus is the outcome of a requirement resolution.
type DocumentStatus struct {
	Missing []DocumentEntry `json:"missing"`
	Extra   []DocumentEntry `json:"extra"`
}

// requirementKey binds a program flag to the thread file type it governs.
type requirementKey struct {
	docKey   string
	fileType string
	value    func(Program) string
}

var requirementKeys = []requirementKey{
	{"rl_required", "RL", func(p Program) string { return p.RLRequired }},
	{"ml_required", "ML", func(p Program) string { return p.MLRequired }},
	{"sop_required", "SOP", func(p Program) string { return p.SOPRequired }},
	{"phs_required", "PHS", func(p Program) string { return p.PHSRequired }},
	{"essay_required", "Essay", func(p Program) string { return p.EssayRequired }},
	{"portfolio_required", "Portfolio", func(p Program) string { return p.PortfolioRequired }},
	{"supplementary_form_required", "Supplementary_Form", func(p Program) string { return p.SupplementaryFormRequired }},
	{"scholarship_form_required", "Scholarship_Form", func(p Program) string { return p.ScholarshipFormRequired }},
	{"curriculum_analysis_required", "Curriculum_Analysis", func(p Program) string { return p.CurriculumAnalysisRequired }},
}

// ProgramDocumentStatus resolves which document threads a program still
// needs and which existing threads it never asked for. The function is
// total: nil thread slices yield empty result sets.
func (e *Engine) ProgramDocumentStatus(program Program, threads []DocumentThread) DocumentStatus {
	status := DocumentStatus{
		Missing: []DocumentEntry{},
		Extra:   []DocumentEntry{},
	}

	for _, key := range requirementKeys {
		if key.docKey == "rl_required" && program.IsRLSpecific {
			if counted, ok := rlCount(program.RLRequired); ok {
				provided := countThreadsWithPrefix(threads, RLSpecificPrefix)
				entry := DocumentEntry{
					DocKey:   key.docKey,
					FileType: key.fileType,
					Counts: &DocumentCounts{
						Required: counted,
						Provided: provided,
						Delta:    absInt(counted - provided),
					},
				}
				switch {
				case provided < counted:
					status.Missing = append(status.Missing, entry)
				case provided > counted:
					status.Extra = append(status.Extra, entry)
				}
				continue
			}
		}

		required := isRequired(key.value(program))
		present := hasThreadOfType(threads, key.fileType)
		entry := DocumentEntry{DocKey: key.docKey, FileType: key.fileType}
		switch {
		case required && !present:
			status.Missing = append(status.Missing, entry)
		case !required && present:
			status.Extra = append(status.Extra, entry)
		}
	}

	return status
}

// GeneralDocumentStatus reconciles recommendation letter counts at the
// student level: the requirement is the maximum rl_required declared by
// any non-RL-specific program among the supplied applications, compared
// against the general Recommendation_Letter_ threads.
func (e *Engine) GeneralDocumentStatus(generalThreads []DocumentThread, applications []Application) DocumentStatus {
	status := DocumentStatus{
		Missing: []DocumentEntry{},
		Extra:   []DocumentEntry{},
	}

	required := 0
	for _, application := range applications {
		if application.Program.IsRLSpecific {
			continue
		}
		if count, ok := rlCount(application.Program.RLRequired); ok && count > required {
			required = count
		}
	}

	provided := 0
	for _, thread := range generalThreads {
		if strings.Contains(thread.FileType, GeneralRLInfix) {
			provided++
		}
	}

	if required == provided {
		return status
	}

	entry := DocumentEntry{
		DocKey:   "rl_required",
		FileType: "RL",
		Counts: &DocumentCounts{
			Required: required,
			Provided: provided,
			Delta:    absInt(required - provided),
		},
	}
	if provided < required {
		status.Missing = append(status.Missing, entry)
	} else {
		status.Extra = append(status.Extra, entry)
	}

	return status
}

// rlCount parses a requirement value as a letter count. "yes" counts as a
// single letter; anything non-numeric otherwise reports no count.
func rlCount(value string) (int, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, "no") {
		return 0, false
	}
	if strings.EqualFold(trimmed, "yes") {
		return 1, true
	}
	count, err := strconv.Atoi(trimmed)
	if err != nil || count < 0 {
		return 0, false
	}
	return count, true
}

func isRequired(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "yes")
}

func hasThreadOfType(threads []DocumentThread, fileType string) bool {
	for _, thread := range threads {
		if thread.FileType == fileType {
			return true
		}
		if fileType == "RL" && strings.HasPrefix(thread.FileType, RLSpecificPrefix) {
			return true
		}
	}
	return false
}

func countThreadsWithPrefix(threads []DocumentThread, prefix string) int {
	count := 0
	for _, thread := range threads {
		if strings.HasPrefix(thread.FileType, prefix) {
			count++
		}
	}
	return count
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
