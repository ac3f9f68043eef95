package repository

import (
	"time"

	"github.com/kursadbilgin/push-relay/internal/domain"
)

// JobModel is the persistence model for the notification_jobs table.
type JobModel struct {
	ID           string        `gorm:"type:uuid;primaryKey"`
	UserID       string        `gorm:"type:varchar(64);not null"`
	Title        string        `gorm:"type:varchar(255);not null"`
	Body         string        `gorm:"type:text;not null"`
	URL          *string       `gorm:"type:text"`
	AttemptCount int           `gorm:"not null;default:0"`
	Status       domain.Status `gorm:"type:varchar(10);not null"`
	LastError    *string       `gorm:"type:text"`
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

func (JobModel) TableName() string {
	return "notification_jobs"
}

// EndpointModel is the persistence model for push_endpoints.
type EndpointModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:varchar(64);not null"`
	Endpoint  string `gorm:"type:text;not null;uniqueIndex:idx_push_endpoints_endpoint"`
	P256DH    string `gorm:"column:p256dh;type:text;not null"`
	Auth      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (EndpointModel) TableName() string {
	return "push_endpoints"
}

func jobModelFromDomain(j *domain.NotificationJob) *JobModel {
	if j == nil {
		return nil
	}

	return &JobModel{
		ID:           j.ID,
		UserID:       j.UserID,
		Title:        j.Title,
		Body:         j.Body,
		URL:          j.URL,
		AttemptCount: j.AttemptCount,
		Status:       j.Status,
		LastError:    j.LastError,
		CreatedAt:    j.CreatedAt,
		ProcessedAt:  j.ProcessedAt,
	}
}

func jobModelToDomain(m *JobModel) *domain.NotificationJob {
	if m == nil {
		return nil
	}

	return &domain.NotificationJob{
		ID:           m.ID,
		UserID:       m.UserID,
		Title:        m.Title,
		Body:         m.Body,
		URL:          m.URL,
		AttemptCount: m.AttemptCount,
		Status:       m.Status,
		LastError:    m.LastError,
		CreatedAt:    m.CreatedAt,
		ProcessedAt:  m.ProcessedAt,
	}
}

func endpointModelFromDomain(e *domain.DeliveryEndpoint) *EndpointModel {
	if e == nil {
		return nil
	}

	return &EndpointModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Endpoint:  e.Endpoint,
		P256DH:    e.P256DH,
		Auth:      e.Auth,
		CreatedAt: e.CreatedAt,
	}
}

func endpointModelToDomain(m *EndpointModel) *domain.DeliveryEndpoint {
	if m == nil {
		return nil
	}

	return &domain.DeliveryEndpoint{
		ID:        m.ID,
		UserID:    m.UserID,
		Endpoint:  m.Endpoint,
		P256DH:    m.P256DH,
		Auth:      m.Auth,
		CreatedAt: m.CreatedAt,
	}
}
