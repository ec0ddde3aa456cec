package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/models"
)

// ProgramFilter describes catalog search options.
type ProgramFilter struct {
	Search   string
	Country  string
	Degree   string
	Semester string
	Page     int
	PageSize int
}

// ProgramRepository defines persistence operations for the program catalog.
type ProgramRepository interface {
	List(ctx context.Context, filter ProgramFilter) ([]models.Program, int64, error)
	GetByID(ctx context.Context, id uint) (models.Program, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	Delete(ctx context.Context, id uint) error
}

type programRepository struct {
	db *gorm.DB
}

// NewProgramRepository instantiates a GORM-backed catalog repository.
func NewProgramRepository(db *gorm.DB) ProgramRepository {
	return &programRepository{db: db}
}

func (r *programRepository) List(ctx context.Context, filter ProgramFilter) ([]models.Program, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Program{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(school) LIKE ? OR LOWER(program_name) LIKE ?", pattern, pattern)
	}
	if filter.Country != "" {
		query = query.Where("country = ?", strings.ToLower(strings.TrimSpace(filter.Country)))
	}
	if filter.Degree != "" {
		query = query.Where("degree = ?", filter.Degree)
	}
	if filter.Semester != "" {
		query = query.Where("semester = ?", filter.Semester)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var programs []models.Program
	if err := query.Order("school ASC, program_name ASC").Find(&programs).Error; err != nil {
		return nil, 0, err
	}

	return programs, total, nil
}

func (r *programRepository) GetByID(ctx context.Context, id uint) (models.Program, error) {
	var program models.Program
	if err := r.db.WithContext(ctx).First(&program, id).Error; err != nil {
		return models.Program{}, err
	}
	return program, nil
}

func (r *programRepository) Create(ctx context.Context, program *models.Program) error {
	return r.db.WithContext(ctx).Create(program).Error
}

func (r *programRepository) Update(ctx context.Context, program *models.Program) error {
	return r.db.WithContext(ctx).Save(program).Error
}

func (r *programRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Program{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
