package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/models"
)

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	StudentID *uint
	ProgramID *uint
	Decided   string
}

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, error)
	// GetByID loads the application with its program and threads
	// preloaded, ready for rule evaluation.
	GetByID(ctx context.Context, id uint) (models.Application, error)
	Create(ctx context.Context, application *models.Application) error
	Update(ctx context.Context, application *models.Application) error
	Delete(ctx context.Context, id uint) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository instantiates a GORM-backed application repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.Application, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{}).
		Preload("Program").
		Preload("Threads")

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.ProgramID != nil {
		query = query.Where("program_id = ?", *filter.ProgramID)
	}
	if filter.Decided != "" {
		query = query.Where("decided = ?", filter.Decided)
	}

	var applications []models.Application
	if err := query.Order("created_at ASC").Find(&applications).Error; err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.Application, error) {
	var application models.Application
	err := r.db.WithContext(ctx).
		Preload("Program").
		Preload("Threads").
		First(&application, id).Error
	if err != nil {
		return models.Application{}, err
	}
	return application, nil
}

func (r *applicationRepository) Create(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Create(application).Error
}

func (r *applicationRepository) Update(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Save(application).Error
}

func (r *applicationRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Application{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
