package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/unipath-io/unipath-api/internal/models"
)

// ThreadFilter narrows document thread listings.
type ThreadFilter struct {
	StudentID     *uint
	ApplicationID *uint
	// GeneralOnly restricts to student-level threads (nil application).
	GeneralOnly bool
	FileType    string
}

// ThreadRepository defines persistence operations for document threads.
type ThreadRepository interface {
	List(ctx context.Context, filter ThreadFilter) ([]models.DocumentThread, error)
	GetByID(ctx context.Context, id uint) (models.DocumentThread, error)
	Create(ctx context.Context, thread *models.DocumentThread) error
	Update(ctx context.Context, thread *models.DocumentThread) error
	Delete(ctx context.Context, id uint) error
	AppendMessage(ctx context.Context, message *models.ThreadMessage) error
	ListMessages(ctx context.Context, threadID uint, limit, offset int) ([]models.ThreadMessage, error)
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository instantiates a GORM-backed thread repository.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) List(ctx context.Context, filter ThreadFilter) ([]models.DocumentThread, error) {
	query := r.db.WithContext(ctx).Model(&models.DocumentThread{})

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.ApplicationID != nil {
		query = query.Where("application_id = ?", *filter.ApplicationID)
	}
	if filter.GeneralOnly {
		query = query.Where("application_id IS NULL")
	}
	if filter.FileType != "" {
		query = query.Where("file_type = ?", filter.FileType)
	}

	var threads []models.DocumentThread
	if err := query.Order("created_at ASC").Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) GetByID(ctx context.Context, id uint) (models.DocumentThread, error) {
	var thread models.DocumentThread
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&thread, id).Error
	if err != nil {
		return models.DocumentThread{}, err
	}
	return thread, nil
}

func (r *threadRepository) Create(ctx context.Context, thread *models.DocumentThread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *threadRepository) Update(ctx context.Context, thread *models.DocumentThread) error {
	return r.db.WithContext(ctx).Save(thread).Error
}

func (r *threadRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.DocumentThread{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *threadRepository) AppendMessage(ctx context.Context, message *models.ThreadMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *threadRepository) ListMessages(ctx context.Context, threadID uint, limit, offset int) ([]models.ThreadMessage, error) {
	query := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var messages []models.ThreadMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
