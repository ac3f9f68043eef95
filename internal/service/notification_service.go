package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/push-relay/internal/domain"
	"github.com/kursadbilgin/push-relay/internal/repository"
	"go.uber.org/zap"
)

// NotificationService is the producer surface: it enqueues jobs in pending
// state. Terminal transitions stay exclusive to the delivery service.
type NotificationService struct {
	jobs   repository.JobRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewNotificationService(jobs repository.JobRepository, logger *zap.Logger) (*NotificationService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		jobs:   jobs,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *NotificationService) Create(ctx context.Context, job *domain.NotificationJob) (*domain.NotificationJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if job == nil {
		return nil, fmt.Errorf("%w: notification job is required", domain.ErrValidation)
	}

	prepareJobForCreate(job, s.now())
	if err := job.Validate(); err != nil {
		return nil, err
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Debug("notification job enqueued",
		zap.String("jobId", job.ID),
		zap.String("userId", job.UserID),
	)

	return job, nil
}

func (s *NotificationService) GetByID(ctx context.Context, id string) (*domain.NotificationJob, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.jobs.GetByID(ctx, id)
}

func (s *NotificationService) List(ctx context.Context, params repository.ListParams) ([]domain.NotificationJob, int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.jobs.List(ctx, params)
}

func prepareJobForCreate(job *domain.NotificationJob, now time.Time) {
	if job == nil {
		return
	}

	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	job.Status = domain.StatusPending
	job.AttemptCount = 0
	job.LastError = nil
	job.ProcessedAt = nil
	job.CreatedAt = now.UTC()
}
