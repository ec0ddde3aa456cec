package rules

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DeadlineWithdrawn is returned for withdrawn applications.
	DeadlineWithdrawn = "WITHDRAW"
	// DeadlineNoData is returned when the program carries no deadline.
	DeadlineNoData = "No Data"
)

// CVDeadlineSummary aggregates the most urgent deadline across a
// student's decided applications.
type CVDeadlineSummary struct {
	CVDeadline  string `json:"cv_deadline"`
	DaysLeftMin int    `json:"days_left_min"`
}

// ApplicationDeadline resolves an application's effective deadline label.
// It returns, in order of precedence: the withdrawal marker, the no-data
// marker, "<year>-Rolling" for rolling admission, or "year/month/day"
// with the year adjusted backward across the academic year boundary.
func (e *Engine) ApplicationDeadline(application Application) string {
	if application.IsWithdrawn() {
		return DeadlineWithdrawn
	}

	raw := strings.TrimSpace(application.Program.ApplicationDeadline)
	if raw == "" {
		return DeadlineNoData
	}

	year := application.Year
	if year == 0 {
		year = e.now().Year()
	}

	if strings.Contains(strings.ToLower(raw), "rolling") {
		return fmt.Sprintf("%d-Rolling", year)
	}

	month, day, ok := parseMonthDay(raw)
	if !ok {
		return raw
	}

	year = adjustYearForSemester(year, application.Program.Semester, month)
	return fmt.Sprintf("%d/%d/%d", year, month, day)
}

// DaysLeft returns the whole days between now and the application's
// deadline. The second return value is false for withdrawn, rolling and
// no-data deadlines.
func (e *Engine) DaysLeft(application Application) (int, bool) {
	label := e.ApplicationDeadline(application)
	deadline, ok := parseDeadlineLabel(label)
	if !ok {
		return 0, false
	}
	days := int(deadline.Sub(e.now()).Hours() / 24)
	return days, true
}

// CVDeadline summarises the earliest deadline across decided,
// non-withdrawn applications, driving document urgency indicators.
func (e *Engine) CVDeadline(student Student) CVDeadlineSummary {
	summary := CVDeadlineSummary{CVDeadline: DeadlineNoData, DaysLeftMin: 0}
	found := false

	for _, application := range student.Applications {
		if !application.IsDecided() || application.IsWithdrawn() {
			continue
		}
		days, ok := e.DaysLeft(application)
		if !ok {
			continue
		}
		if !found || days < summary.DaysLeftMin {
			summary.DaysLeftMin = days
			summary.CVDeadline = e.ApplicationDeadline(application)
			found = true
		}
	}

	return summary
}

// adjustYearForSemester rolls the nominal year back by one when the
// deadline falls after the academic year starts: past September for
// winter intake, past March for summer intake.
func adjustYearForSemester(year int, semester Semester, month int) int {
	switch semester {
	case SemesterWinter:
		if month > 9 {
			return year - 1
		}
	case SemesterSummer:
		if month > 3 {
			return year - 1
		}
	}
	return year
}

func parseMonthDay(raw string) (month, day int, ok bool) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	day, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || day < 1 || day > 31 {
		return 0, 0, false
	}
	return month, day, true
}

func parseDeadlineLabel(label string) (time.Time, bool) {
	parts := strings.Split(label, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	year, errYear := strconv.Atoi(parts[0])
	month, errMonth := strconv.Atoi(parts[1])
	day, errDay := strconv.Atoi(parts[2])
	if errYear != nil || errMonth != nil || errDay != nil {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
