package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/push-relay/internal/domain"
	"gorm.io/gorm"
)

type ListParams struct {
	Status   *domain.Status
	UserID   *string
	Page     int
	PageSize int
}

// JobRepository is the Job Store contract. Each method is one atomic call;
// the dispatcher never holds a transaction across calls.
type JobRepository interface {
	Create(ctx context.Context, j *domain.NotificationJob) error
	GetByID(ctx context.Context, id string) (*domain.NotificationJob, error)
	List(ctx context.Context, params ListParams) ([]domain.NotificationJob, int64, error)
	ListPending(ctx context.Context, limit int) ([]domain.NotificationJob, error)
	MarkAttempt(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

type GormJobRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormJobRepo(db *gorm.DB) *GormJobRepo {
	return &GormJobRepo{db: db, now: time.Now}
}

func (r *GormJobRepo) Create(ctx context.Context, j *domain.NotificationJob) error {
	model := jobModelFromDomain(j)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if j != nil {
		*j = *jobModelToDomain(model)
	}
	return nil
}

func (r *GormJobRepo) GetByID(ctx context.Context, id string) (*domain.NotificationJob, error) {
	var model JobModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return jobModelToDomain(&model), nil
}

func (r *GormJobRepo) List(ctx context.Context, params ListParams) ([]domain.NotificationJob, int64, error) {
	query := r.db.WithContext(ctx).Model(&JobModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []JobModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	jobs := make([]domain.NotificationJob, 0, len(models))
	for i := range models {
		jobs = append(jobs, *jobModelToDomain(&models[i]))
	}

	return jobs, total, nil
}

// ListPending returns pending jobs below the attempt cap, oldest first.
// FIFO ordering keeps early jobs from starving under sustained load.
func (r *GormJobRepo) ListPending(ctx context.Context, limit int) ([]domain.NotificationJob, error) {
	var models []JobModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempt_count < ?", domain.StatusPending, domain.MaxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.NotificationJob, 0, len(models))
	for i := range models {
		jobs = append(jobs, *jobModelToDomain(&models[i]))
	}

	return jobs, nil
}

func (r *GormJobRepo) MarkAttempt(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ?", id).
		Update("attempt_count", gorm.Expr("attempt_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormJobRepo) MarkSent(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       domain.StatusSent,
			"processed_at": r.now().UTC(),
			"last_error":   nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormJobRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&JobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       domain.StatusFailed,
			"processed_at": r.now().UTC(),
			"last_error":   reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
