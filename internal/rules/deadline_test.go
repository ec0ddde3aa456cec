package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplicationDeadlineWinterSemesterRollsYearBack(t *testing.T) {
	engine := New(Config{})

	application := Application{
		Program: Program{ApplicationDeadline: "10-15", Semester: SemesterWinter},
		Year:    2025,
	}
	require.Equal(t, "2024/10/15", engine.ApplicationDeadline(application))
}

func TestApplicationDeadlineWinterSemesterBeforeOctoberKeepsYear(t *testing.T) {
	engine := New(Config{})

	application := Application{
		Program: Program{ApplicationDeadline: "07-15", Semester: SemesterWinter},
		Year:    2025,
	}
	require.Equal(t, "2025/7/15", engine.ApplicationDeadline(application))
}

func TestApplicationDeadlineSummerSemesterBoundary(t *testing.T) {
	engine := New(Config{})

	afterMarch := Application{
		Program: Program{ApplicationDeadline: "09-30", Semester: SemesterSummer},
		Year:    2025,
	}
	require.Equal(t, "2024/9/30", engine.ApplicationDeadline(afterMarch))

	upToMarch := Application{
		Program: Program{ApplicationDeadline: "03-31", Semester: SemesterSummer},
		Year:    2025,
	}
	require.Equal(t, "2025/3/31", engine.ApplicationDeadline(upToMarch))
}

func TestApplicationDeadlineRolling(t *testing.T) {
	engine := New(Config{})

	for _, raw := range []string{"Rolling", "rolling admission", "ROLLING"} {
		application := Application{
			Program: Program{ApplicationDeadline: raw, Semester: SemesterWinter},
			Year:    2025,
		}
		require.Equal(t, "2025-Rolling", engine.ApplicationDeadline(application), raw)
	}
}

func TestApplicationDeadlineWithdrawnWinsOverEverything(t *testing.T) {
	engine := New(Config{})

	application := Application{
		Program: Program{ApplicationDeadline: "10-15", Semester: SemesterWinter},
		Year:    2025,
		Closed:  StateTaken,
	}
	require.Equal(t, DeadlineWithdrawn, engine.ApplicationDeadline(application))
}

func TestApplicationDeadlineNoData(t *testing.T) {
	engine := New(Config{})

	require.Equal(t, DeadlineNoData, engine.ApplicationDeadline(Application{Year: 2025}))
	require.Equal(t, DeadlineNoData, engine.ApplicationDeadline(Application{
		Program: Program{ApplicationDeadline: "   "},
		Year:    2025,
	}))
}

func TestApplicationDeadlineUnparseablePatternReturnedVerbatim(t *testing.T) {
	engine := New(Config{})

	application := Application{
		Program: Program{ApplicationDeadline: "mid October"},
		Year:    2025,
	}
	require.Equal(t, "mid October", engine.ApplicationDeadline(application))
}

func TestApplicationDeadlineZeroYearFallsBackToCurrentYear(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	engine := fixedEngine(now)

	application := Application{Program: Program{ApplicationDeadline: "06-01"}}
	require.Equal(t, "2026/6/1", engine.ApplicationDeadline(application))
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	engine := fixedEngine(now)

	application := Application{
		Program: Program{ApplicationDeadline: "10-15", Semester: SemesterWinter},
		Year:    2025,
	}
	days, ok := engine.DaysLeft(application)
	require.True(t, ok)
	require.Equal(t, 14, days)

	_, ok = engine.DaysLeft(Application{Program: Program{ApplicationDeadline: "Rolling"}, Year: 2025})
	require.False(t, ok)

	_, ok = engine.DaysLeft(Application{Closed: StateTaken})
	require.False(t, ok)
}

func TestCVDeadlinePicksMostUrgentDecidedApplication(t *testing.T) {
	now := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	engine := fixedEngine(now)

	student := Student{Applications: []Application{
		{
			Program: Program{ApplicationDeadline: "12-01", Semester: SemesterWinter},
			Year:    2025,
			Decided: StatePassed,
		},
		{
			Program: Program{ApplicationDeadline: "10-15", Semester: SemesterWinter},
			Year:    2025,
			Decided: StatePassed,
		},
		{
			// Undecided applications are ignored even when sooner.
			Program: Program{ApplicationDeadline: "09-15", Semester: SemesterWinter},
			Year:    2025,
			Decided: StateUnknown,
		},
	}}

	summary := engine.CVDeadline(student)
	require.Equal(t, "2024/10/15", summary.CVDeadline)
	require.Equal(t, 44, summary.DaysLeftMin)
}

func TestCVDeadlineNoDecidedApplications(t *testing.T) {
	engine := New(Config{})

	summary := engine.CVDeadline(Student{})
	require.Equal(t, DeadlineNoData, summary.CVDeadline)
	require.Equal(t, 0, summary.DaysLeftMin)
}

func TestAdjustYearForSemester(t *testing.T) {
	cases := []struct {
		semester Semester
		month    int
		expected int
	}{
		{SemesterWinter, 10, 2024},
		{SemesterWinter, 9, 2025},
		{SemesterSummer, 4, 2024},
		{SemesterSummer, 3, 2025},
		{Semester(""), 12, 2025},
	}

	for _, tc := range cases {
		require.Equal(t, tc.expected, adjustYearForSemester(2025, tc.semester, tc.month))
	}
}
