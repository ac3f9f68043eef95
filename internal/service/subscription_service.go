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

// SubscriptionService manages the endpoint registry's subscribe side. The
// delivery service handles the self-healing delete path on its own.
type SubscriptionService struct {
	endpoints repository.EndpointRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewSubscriptionService(endpoints repository.EndpointRepository, logger *zap.Logger) (*SubscriptionService, error) {
	if endpoints == nil {
		return nil, fmt.Errorf("endpoint repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SubscriptionService{
		endpoints: endpoints,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *SubscriptionService) Subscribe(ctx context.Context, endpoint *domain.DeliveryEndpoint) (*domain.DeliveryEndpoint, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if endpoint == nil {
		return nil, fmt.Errorf("%w: endpoint is required", domain.ErrValidation)
	}

	if strings.TrimSpace(endpoint.ID) == "" {
		endpoint.ID = uuid.NewString()
	}
	endpoint.CreatedAt = s.now().UTC()
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}

	if err := s.endpoints.Upsert(ctx, endpoint); err != nil {
		return nil, err
	}

	s.logger.Info("endpoint subscribed",
		zap.String("endpointId", endpoint.ID),
		zap.String("userId", endpoint.UserID),
	)

	return endpoint, nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.endpoints.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("endpoint unsubscribed", zap.String("endpointId", id))
	return nil
}

func (s *SubscriptionService) ListForUser(ctx context.Context, userID string) ([]domain.DeliveryEndpoint, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.endpoints.ListForUser(ctx, userID)
}
