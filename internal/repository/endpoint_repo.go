package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/push-relay/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EndpointRepository is the Endpoint Registry contract.
type EndpointRepository interface {
	Upsert(ctx context.Context, e *domain.DeliveryEndpoint) error
	GetByID(ctx context.Context, id string) (*domain.DeliveryEndpoint, error)
	ListForUser(ctx context.Context, userID string) ([]domain.DeliveryEndpoint, error)
	Delete(ctx context.Context, id string) error
}

type GormEndpointRepo struct {
	db *gorm.DB
}

func NewGormEndpointRepo(db *gorm.DB) *GormEndpointRepo {
	return &GormEndpointRepo{db: db}
}

// Upsert creates the endpoint or, when the address is already registered,
// refreshes its owner and key material. A browser re-subscribing must not
// produce a second row for the same address.
func (r *GormEndpointRepo) Upsert(ctx context.Context, e *domain.DeliveryEndpoint) error {
	model := endpointModelFromDomain(e)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}

	// The conflict path keeps the existing row id; re-read so callers see
	// the stored identity.
	var stored EndpointModel
	if err := r.db.WithContext(ctx).First(&stored, "endpoint = ?", model.Endpoint).Error; err != nil {
		return err
	}
	if e != nil {
		*e = *endpointModelToDomain(&stored)
	}
	return nil
}

func (r *GormEndpointRepo) GetByID(ctx context.Context, id string) (*domain.DeliveryEndpoint, error) {
	var model EndpointModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return endpointModelToDomain(&model), nil
}

func (r *GormEndpointRepo) ListForUser(ctx context.Context, userID string) ([]domain.DeliveryEndpoint, error) {
	var models []EndpointModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	endpoints := make([]domain.DeliveryEndpoint, 0, len(models))
	for i := range models {
		endpoints = append(endpoints, *endpointModelToDomain(&models[i]))
	}

	return endpoints, nil
}

func (r *GormEndpointRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&EndpointModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
