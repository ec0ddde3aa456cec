package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/rules"
)

func TestStudentOverviewAggregationAndCaching(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := openTestDB(t, "file:overview?mode=memory&cache=shared")
	engine := rules.New(rules.Config{})
	svc := NewStudentOverviewService(repository.NewStudentRepository(db), engine, redisClient, time.Minute, zerolog.Nop())
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.overview@example.com"}
	require.NoError(t, student.SetBackgroundDocument(models.AcademicBackgroundDocument{
		University: &models.UniversityDocument{GPA: 3.6, MaxGPA: 4, IsGraduated: "Yes", HighestDegree: "bachelor"},
		Language:   &models.LanguageDocument{EnglishIsPassed: models.FlagYes, GermanIsPassed: models.FlagNotNeeded, GREIsPassed: models.FlagNotNeeded, GMATIsPassed: models.FlagNotNeeded},
	}))
	require.NoError(t, db.Create(&student).Error)

	cv := models.DocumentThread{StudentID: student.ID, FileType: "CV", IsFinalVersion: true}
	require.NoError(t, db.Create(&cv).Error)

	updated := time.Now().Add(-24 * time.Hour)
	program := models.Program{
		School:              "Test University",
		ProgramName:         "M.Sc. Data Engineering",
		Country:             "de",
		Language:            "english",
		Semester:            "WS",
		ApplicationDeadline: "01-15",
		RLRequired:          "no",
		DataUpdatedAt:       &updated,
	}
	require.NoError(t, db.Create(&program).Error)

	application := models.Application{
		StudentID:       student.ID,
		ProgramID:       program.ID,
		Decided:         models.FlagYes,
		Closed:          models.FlagUnset,
		Admission:       models.FlagUnset,
		ApplicationYear: 2027,
	}
	require.NoError(t, db.Create(&application).Error)

	overview, err := svc.GetOverview(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, student.ID, overview.StudentID)
	require.True(t, overview.LanguageInfoComplete)
	require.True(t, overview.LanguagesFilled)
	require.Len(t, overview.Applications, 1)
	require.Equal(t, "2027/1/15", overview.Applications[0].Evaluation.Deadline)
	require.False(t, overview.Applications[0].Evaluation.LockStatus.IsLocked)
	require.Equal(t, overview.Applications[0].Evaluation.Progress.Percent, overview.OverallPercent)

	// second read must come from the cache: mutating the row directly
	// does not change the response until invalidation
	require.NoError(t, db.Model(&models.Application{}).Where("id = ?", application.ID).Update("decided", models.FlagNo).Error)

	cached, err := svc.GetOverview(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, models.FlagYes, cached.Applications[0].Decided)

	svc.InvalidateOverview(ctx, student.ID)

	refreshed, err := svc.GetOverview(ctx, student.ID)
	require.NoError(t, err)
	require.Equal(t, models.FlagNo, refreshed.Applications[0].Decided)
	require.Equal(t, 0, refreshed.OverallPercent)
}

func TestStudentOverviewUnknownStudent(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := openTestDB(t, "file:overview_missing?mode=memory&cache=shared")
	svc := NewStudentOverviewService(repository.NewStudentRepository(db), rules.New(rules.Config{}), redisClient, time.Minute, zerolog.Nop())

	_, err = svc.GetOverview(context.Background(), 999)
	require.ErrorIs(t, err, ErrStudentNotFound)
}
