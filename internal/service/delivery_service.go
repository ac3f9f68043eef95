package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/push-relay/internal/domain"
	"github.com/kursadbilgin/push-relay/internal/observability"
	"github.com/kursadbilgin/push-relay/internal/push"
	"github.com/kursadbilgin/push-relay/internal/ratelimit"
	"github.com/kursadbilgin/push-relay/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 25
	deliveryScope    = "push"

	reasonNotConfigured = "push transport is not configured"
	reasonNoEndpoints   = "no registered endpoints for user"
	reasonNoDelivery    = "no delivery succeeded"
)

// DeliveryService drains pending notification jobs and fans each one out to
// every endpoint registered for its user. Jobs within a batch are processed
// strictly sequentially, endpoints within a job likewise; the only
// parallelism in the design is across overlapping batches.
type DeliveryService struct {
	jobs        repository.JobRepository
	endpoints   repository.EndpointRepository
	transport   push.Transport
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	batchSize   int
}

func NewDeliveryService(
	jobs repository.JobRepository,
	endpoints repository.EndpointRepository,
	transport push.Transport,
	rateLimiter ratelimit.RateLimiter,
	batchSize int,
	logger *zap.Logger,
) (*DeliveryService, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint repository is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("push transport is required")
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Noop{}
	}
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		jobs:        jobs,
		endpoints:   endpoints,
		transport:   transport,
		rateLimiter: rateLimiter,
		logger:      logger,
		batchSize:   batchSize,
	}, nil
}

func (s *DeliveryService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// ProcessBatch drains one batch of eligible jobs, oldest first. A Job Store
// or Endpoint Registry failure ends the batch early; unprocessed jobs stay
// pending and are reselected on the next tick.
func (s *DeliveryService) ProcessBatch(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveBatchDuration(time.Since(start))
		}
	}()

	jobs, err := s.jobs.ListPending(ctx, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	for i := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.processJob(ctx, &jobs[i]); err != nil {
			return err
		}
	}

	return nil
}

// processJob runs one attempt cycle for one job. It returns an error only
// for store-level failures; delivery failures are absorbed into the job's
// terminal outcome.
func (s *DeliveryService) processJob(ctx context.Context, job *domain.NotificationJob) error {
	// The attempt is consumed before any delivery work so a crash mid-job
	// still counts against the cap on the next run.
	if err := s.jobs.MarkAttempt(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark attempt for job %s: %w", job.ID, err)
	}

	if !s.transport.IsConfigured() {
		if err := s.jobs.MarkFailed(ctx, job.ID, reasonNotConfigured); err != nil {
			return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
		}
		if s.metrics != nil {
			s.metrics.IncJobProcessed("failed")
			s.metrics.IncJobFailed("configuration")
		}
		s.logger.Warn("job dead-lettered, transport not configured",
			zap.String("jobId", job.ID),
		)
		return nil
	}

	endpoints, err := s.endpoints.ListForUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to list endpoints for user %s: %w", job.UserID, err)
	}

	if len(endpoints) == 0 {
		if err := s.jobs.MarkFailed(ctx, job.ID, reasonNoEndpoints); err != nil {
			return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
		}
		if s.metrics != nil {
			s.metrics.IncJobProcessed("failed")
			s.metrics.IncJobFailed("no_endpoints")
		}
		s.logger.Info("job dead-lettered, user has no endpoints",
			zap.String("jobId", job.ID),
			zap.String("userId", job.UserID),
		)
		return nil
	}

	payload := push.Payload{
		Title: job.Title,
		Body:  job.Body,
		URL:   job.URL,
		JobID: job.ID,
	}

	// All endpoints are attempted; a success never short-circuits the rest
	// because the job addresses every registered device.
	delivered := false
	lastError := ""
	for i := range endpoints {
		endpoint := endpoints[i]

		if err := s.rateLimiter.Wait(ctx, deliveryScope); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastError = fmt.Sprintf("rate limiter failed: %v", err)
			continue
		}

		sendErr := s.transport.Send(ctx, endpoint, payload)
		switch {
		case sendErr == nil:
			delivered = true
			if s.metrics != nil {
				s.metrics.IncDelivery("success")
			}

		case push.IsEndpointGone(sendErr):
			// Self-healing deletion, independent of the job's outcome.
			if s.metrics != nil {
				s.metrics.IncDelivery("expired")
			}
			if err := s.endpoints.Delete(ctx, endpoint.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("failed to delete expired endpoint %s: %w", endpoint.ID, err)
			}
			if s.metrics != nil {
				s.metrics.IncEndpointRemoved()
			}
			s.logger.Info("removed expired endpoint",
				zap.String("endpointId", endpoint.ID),
				zap.String("userId", endpoint.UserID),
			)

		default:
			// Last failure wins for the recorded reason.
			lastError = sendErr.Error()
			if s.metrics != nil {
				s.metrics.IncDelivery("error")
			}
			s.logger.Warn("delivery failed",
				zap.String("jobId", job.ID),
				zap.String("endpointId", endpoint.ID),
				zap.Error(sendErr),
			)
		}
	}

	if delivered {
		if err := s.jobs.MarkSent(ctx, job.ID); err != nil {
			return fmt.Errorf("failed to mark job %s sent: %w", job.ID, err)
		}
		if s.metrics != nil {
			s.metrics.IncJobProcessed("sent")
		}
		s.logger.Info("job delivered",
			zap.String("jobId", job.ID),
			zap.Int("endpoints", len(endpoints)),
		)
		return nil
	}

	if lastError == "" {
		// Every endpoint was expired and removed; nothing transient to retry.
		lastError = reasonNoDelivery
	}

	if err := s.jobs.MarkFailed(ctx, job.ID, lastError); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
	}
	if s.metrics != nil {
		s.metrics.IncJobProcessed("failed")
		s.metrics.IncJobFailed("delivery")
	}
	s.logger.Warn("job failed on all endpoints",
		zap.String("jobId", job.ID),
		zap.Int("endpoints", len(endpoints)),
		zap.String("lastError", lastError),
	)

	return nil
}
