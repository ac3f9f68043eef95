package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DeliveryEndpoint is one registered device/browser push subscription.
// P256DH and Auth are the opaque key materials required by the Web Push
// transport for payload encryption.
type DeliveryEndpoint struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:varchar(64);not null"`
	Endpoint  string `gorm:"type:text;not null"`
	P256DH    string `gorm:"column:p256dh;type:text;not null"`
	Auth      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (e *DeliveryEndpoint) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	endpoint := strings.TrimSpace(e.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrValidation)
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return fmt.Errorf("%w: invalid endpoint %q", ErrValidation, e.Endpoint)
	}
	if e.P256DH == "" {
		return fmt.Errorf("%w: p256dh key is required", ErrValidation)
	}
	if e.Auth == "" {
		return fmt.Errorf("%w: auth key is required", ErrValidation)
	}
	return nil
}
