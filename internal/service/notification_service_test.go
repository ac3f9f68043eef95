package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/push-relay/internal/domain"
	"github.com/kursadbilgin/push-relay/internal/repository"
	"go.uber.org/zap"
)

func TestNewNotificationServiceValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewNotificationService(nil, zap.NewNop()); err == nil {
		t.Fatal("expected error when job repository is nil")
	}
}

func TestNotificationServiceCreate(t *testing.T) {
	t.Parallel()

	var created *domain.NotificationJob
	repo := &fakeJobRepo{
		createFn: func(ctx context.Context, j *domain.NotificationJob) error {
			created = j
			return nil
		},
	}
	svc, err := NewNotificationService(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	stale := "old error"
	staleAt := fixed.Add(-time.Hour)
	job, err := svc.Create(context.Background(), &domain.NotificationJob{
		UserID:       "u1",
		Title:        "Order shipped",
		Body:         "Your order is on its way.",
		Status:       domain.StatusFailed,
		AttemptCount: 7,
		LastError:    &stale,
		ProcessedAt:  &staleAt,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created == nil {
		t.Fatal("repository Create was not called")
	}

	// Client-supplied lifecycle state is discarded; every new job starts
	// pending with zero attempts.
	if job.ID == "" {
		t.Fatal("expected a generated job id")
	}
	if job.Status != domain.StatusPending {
		t.Fatalf("status = %s, want %s", job.Status, domain.StatusPending)
	}
	if job.AttemptCount != 0 {
		t.Fatalf("attempt count = %d, want 0", job.AttemptCount)
	}
	if job.LastError != nil || job.ProcessedAt != nil {
		t.Fatal("lifecycle fields were not cleared")
	}
	if !job.CreatedAt.Equal(fixed) {
		t.Fatalf("created at = %v, want %v", job.CreatedAt, fixed)
	}
}

func TestNotificationServiceCreateValidation(t *testing.T) {
	t.Parallel()

	repo := &fakeJobRepo{
		createFn: func(ctx context.Context, j *domain.NotificationJob) error {
			t.Fatal("repository must not be called for an invalid job")
			return nil
		},
	}
	svc, err := NewNotificationService(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	tests := []struct {
		name string
		job  *domain.NotificationJob
	}{
		{name: "nil job", job: nil},
		{name: "missing user", job: &domain.NotificationJob{Title: "t", Body: "b"}},
		{name: "missing title", job: &domain.NotificationJob{UserID: "u1", Body: "b"}},
		{name: "missing body", job: &domain.NotificationJob{UserID: "u1", Title: "t"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Create(context.Background(), tt.job)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
		})
	}
}

func TestNotificationServiceCreateRepositoryError(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("insert failed")
	repo := &fakeJobRepo{
		createFn: func(ctx context.Context, j *domain.NotificationJob) error {
			return repoErr
		},
	}
	svc, err := NewNotificationService(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	_, err = svc.Create(context.Background(), &domain.NotificationJob{
		UserID: "u1",
		Title:  "t",
		Body:   "b",
	})
	if !errors.Is(err, repoErr) {
		t.Fatalf("Create() error = %v, want %v", err, repoErr)
	}
}

func TestNotificationServiceList(t *testing.T) {
	t.Parallel()

	repo := &fakeJobRepo{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.NotificationJob, int64, error) {
			if params.UserID == nil || *params.UserID != "u1" {
				t.Fatalf("params.UserID = %v, want u1", params.UserID)
			}
			return []domain.NotificationJob{pendingJob("j1", "u1")}, 1, nil
		},
	}
	svc, err := NewNotificationService(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewNotificationService() error = %v", err)
	}

	userID := "u1"
	jobs, total, err := svc.List(context.Background(), repository.ListParams{UserID: &userID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(jobs) != 1 {
		t.Fatalf("got %d jobs (total %d), want 1", len(jobs), total)
	}
}
