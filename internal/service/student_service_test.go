package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/rules"
)

func TestStudentServiceUpdateBackgroundInvalidatesOverview(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := openTestDB(t, "file:studentsvc?mode=memory&cache=shared")
	studentRepo := repository.NewStudentRepository(db)
	overview := NewStudentOverviewService(studentRepo, rules.New(rules.Config{}), redisClient, time.Minute, zerolog.Nop())
	svc := NewStudentService(studentRepo, overview, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.profile@example.com"}
	require.NoError(t, db.Create(&student).Error)

	// prime the cache with the incomplete profile
	before, err := overview.GetOverview(ctx, student.ID)
	require.NoError(t, err)
	require.False(t, before.LanguageInfoComplete)

	updated, err := svc.UpdateBackground(ctx, student.ID, dto.StudentBackgroundUpdateRequest{
		University: &dto.UniversityPayload{GPA: 3.4, MaxGPA: 4, IsGraduated: "Yes", HighestDegree: "bachelor"},
		Language: &dto.LanguagePayload{
			EnglishIsPassed: "O",
			GermanIsPassed:  "--",
			GREIsPassed:     "--",
			GMATIsPassed:    "--",
			EnglishTestDate: "2025-06-01",
		},
	})
	require.NoError(t, err)

	doc := updated.BackgroundDocument()
	require.NotNil(t, doc)
	require.NotNil(t, doc.Language)
	require.Equal(t, "O", doc.Language.EnglishIsPassed)
	require.NotNil(t, doc.Language.EnglishTestDate)

	after, err := overview.GetOverview(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, after.LanguageInfoComplete)
	require.True(t, after.LanguagesFilled)
}

func TestStudentServiceUpdateBackgroundValidation(t *testing.T) {
	db := openTestDB(t, "file:studentsvc_invalid?mode=memory&cache=shared")
	studentRepo := repository.NewStudentRepository(db)
	svc := NewStudentService(studentRepo, nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.invalid@example.com"}
	require.NoError(t, db.Create(&student).Error)

	_, err := svc.UpdateBackground(ctx, student.ID, dto.StudentBackgroundUpdateRequest{
		Language: &dto.LanguagePayload{EnglishIsPassed: "yes"},
	})
	require.Error(t, err)

	_, err = svc.UpdateBackground(ctx, 999, dto.StudentBackgroundUpdateRequest{})
	require.ErrorIs(t, err, ErrStudentNotFound)
}
