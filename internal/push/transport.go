package push

import (
	"context"

	"github.com/kursadbilgin/push-relay/internal/domain"
)

// Transport is the outbound push delivery port. One Send call delivers one
// payload to one endpoint.
type Transport interface {
	IsConfigured() bool
	Send(ctx context.Context, endpoint domain.DeliveryEndpoint, payload Payload) error
}

// Payload is the notification body delivered to an endpoint. JobID rides
// along so receiving clients can deduplicate at-least-once deliveries.
type Payload struct {
	Title string  `json:"title"`
	Body  string  `json:"body"`
	URL   *string `json:"url,omitempty"`
	JobID string  `json:"jobId"`
}
