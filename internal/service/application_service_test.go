package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/dto"
	"github.com/unipath-io/unipath-api/internal/models"
	"github.com/unipath-io/unipath-api/internal/repository"
	"github.com/unipath-io/unipath-api/internal/rules"
)

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.Program{},
		&models.Application{},
		&models.DocumentThread{},
		&models.ThreadMessage{},
	))
	return db
}

func newApplicationTestService(db *gorm.DB) ApplicationService {
	engine := rules.New(rules.Config{})
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	return NewApplicationService(
		repository.NewApplicationRepository(db),
		repository.NewProgramRepository(db),
		repository.NewStudentRepository(db),
		engine,
		validate,
		logger,
	)
}

func freshProgram(country string) models.Program {
	updated := time.Now().Add(-time.Hour)
	return models.Program{
		School:              "Test University",
		ProgramName:         "M.Sc. Data Engineering",
		Degree:              "master",
		Country:             country,
		Language:            "english",
		Semester:            "WS",
		ApplicationDeadline: "01-15",
		RLRequired:          "no",
		MLRequired:          "no",
		DataUpdatedAt:       &updated,
	}
}

func TestApplicationServiceRejectsEditsWhenProgramDataStale(t *testing.T) {
	db := openTestDB(t, "file:appsvc_stale?mode=memory&cache=shared")
	svc := newApplicationTestService(db)
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.stale@example.com"}
	require.NoError(t, db.Create(&student).Error)

	stale := time.Now().Add(-400 * 24 * time.Hour)
	program := freshProgram("de")
	program.DataUpdatedAt = &stale
	require.NoError(t, db.Create(&program).Error)

	application := models.Application{StudentID: student.ID, ProgramID: program.ID, Decided: models.FlagUnset, Closed: models.FlagUnset, Admission: models.FlagUnset}
	require.NoError(t, db.Create(&application).Error)

	_, err := svc.Decide(ctx, application.ID, dto.ApplicationDecisionRequest{Decided: models.FlagYes})
	require.ErrorIs(t, err, ErrApplicationLocked)
}

func TestApplicationServiceDecideOnFreshApprovalCountry(t *testing.T) {
	db := openTestDB(t, "file:appsvc_decide?mode=memory&cache=shared")
	svc := newApplicationTestService(db)
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.decide@example.com"}
	require.NoError(t, db.Create(&student).Error)

	program := freshProgram("de")
	require.NoError(t, db.Create(&program).Error)

	application := models.Application{StudentID: student.ID, ProgramID: program.ID, Decided: models.FlagUnset, Closed: models.FlagUnset, Admission: models.FlagUnset}
	require.NoError(t, db.Create(&application).Error)

	response, err := svc.Decide(ctx, application.ID, dto.ApplicationDecisionRequest{Decided: models.FlagYes})
	require.NoError(t, err)
	require.Equal(t, models.FlagYes, response.Decided)
	require.False(t, response.Evaluation.LockStatus.IsLocked)
	require.False(t, response.Evaluation.LockStatus.CanUnlock)
}

func TestApplicationServiceSetLock(t *testing.T) {
	db := openTestDB(t, "file:appsvc_lock?mode=memory&cache=shared")
	svc := newApplicationTestService(db)
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.lock@example.com"}
	require.NoError(t, db.Create(&student).Error)

	approval := freshProgram("de")
	require.NoError(t, db.Create(&approval).Error)
	nonApproval := freshProgram("us")
	require.NoError(t, db.Create(&nonApproval).Error)

	approvalApp := models.Application{StudentID: student.ID, ProgramID: approval.ID, Decided: models.FlagUnset, Closed: models.FlagUnset, Admission: models.FlagUnset}
	require.NoError(t, db.Create(&approvalApp).Error)
	nonApprovalApp := models.Application{StudentID: student.ID, ProgramID: nonApproval.ID, Decided: models.FlagUnset, Closed: models.FlagUnset, Admission: models.FlagUnset}
	require.NoError(t, db.Create(&nonApprovalApp).Error)

	// approval-country applications never expose the manual override
	_, err := svc.SetLock(ctx, approvalApp.ID, dto.ApplicationLockRequest{IsLocked: true})
	require.ErrorIs(t, err, ErrLockNotOverridable)

	response, err := svc.SetLock(ctx, nonApprovalApp.ID, dto.ApplicationLockRequest{IsLocked: true})
	require.NoError(t, err)
	require.True(t, response.Evaluation.LockStatus.IsLocked)
	require.Equal(t, rules.LockReasonNonApprovalCountry, response.Evaluation.LockStatus.Reason)

	// once locked, regular edits are rejected until unlocked again
	_, err = svc.Decide(ctx, nonApprovalApp.ID, dto.ApplicationDecisionRequest{Decided: models.FlagYes})
	require.ErrorIs(t, err, ErrApplicationLocked)

	response, err = svc.SetLock(ctx, nonApprovalApp.ID, dto.ApplicationLockRequest{IsLocked: false})
	require.NoError(t, err)
	require.False(t, response.Evaluation.LockStatus.IsLocked)
}

func TestApplicationServiceSubmitGatedByReadiness(t *testing.T) {
	db := openTestDB(t, "file:appsvc_submit?mode=memory&cache=shared")
	svc := newApplicationTestService(db)
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.submit@example.com"}
	require.NoError(t, db.Create(&student).Error)

	program := freshProgram("de")
	require.NoError(t, db.Create(&program).Error)

	application := models.Application{StudentID: student.ID, ProgramID: program.ID, Decided: models.FlagYes, Closed: models.FlagUnset, Admission: models.FlagUnset}
	require.NoError(t, db.Create(&application).Error)

	// no finalised CV yet: the readiness gates reject the submission
	_, err := svc.Submit(ctx, application.ID, dto.ApplicationSubmitRequest{Closed: models.FlagYes})
	require.ErrorIs(t, err, ErrNotReadyToSubmit)

	cv := models.DocumentThread{StudentID: student.ID, FileType: "CV", IsFinalVersion: true}
	require.NoError(t, db.Create(&cv).Error)

	response, err := svc.Submit(ctx, application.ID, dto.ApplicationSubmitRequest{Closed: models.FlagYes})
	require.NoError(t, err)
	require.Equal(t, models.FlagYes, response.Closed)

	// withdrawal skips the gates entirely
	response, err = svc.Submit(ctx, application.ID, dto.ApplicationSubmitRequest{Closed: models.FlagNo})
	require.NoError(t, err)
	require.Equal(t, models.FlagNo, response.Closed)
	require.Equal(t, rules.DeadlineWithdrawn, response.Evaluation.Deadline)
}

func TestApplicationServiceCreateUnknownProgram(t *testing.T) {
	db := openTestDB(t, "file:appsvc_create?mode=memory&cache=shared")
	svc := newApplicationTestService(db)
	ctx := context.Background()

	student := models.Student{Name: "Mei Lin", Email: "mei.create@example.com"}
	require.NoError(t, db.Create(&student).Error)

	_, err := svc.Create(ctx, dto.ApplicationCreateRequest{StudentID: student.ID, ProgramID: 42})
	require.ErrorIs(t, err, ErrProgramNotFound)

	program := freshProgram("nl")
	require.NoError(t, db.Create(&program).Error)

	response, err := svc.Create(ctx, dto.ApplicationCreateRequest{StudentID: student.ID, ProgramID: program.ID, ApplicationYear: 2027})
	require.NoError(t, err)
	require.Equal(t, models.FlagUnset, response.Decided)
	require.Equal(t, program.ID, response.ProgramID)
}
