package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/kursadbilgin/push-relay/internal/domain"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultTTLSeconds  = 3600
	maxResponseBytes   = 4 * 1024
)

var _ Transport = (*WebPushTransport)(nil)

// WebPushTransport delivers payloads over the Web Push protocol with VAPID
// authentication. It is safe to construct with empty credentials; Send then
// fails and IsConfigured reports false.
type WebPushTransport struct {
	publicKey  string
	privateKey string
	subject    string
	client     *http.Client
	ttl        int
}

func NewWebPushTransport(publicKey, privateKey, subject string) *WebPushTransport {
	return NewWebPushTransportWithClient(publicKey, privateKey, subject, &http.Client{Timeout: defaultSendTimeout})
}

func NewWebPushTransportWithClient(publicKey, privateKey, subject string, client *http.Client) *WebPushTransport {
	if client == nil {
		client = &http.Client{Timeout: defaultSendTimeout}
	}

	return &WebPushTransport{
		publicKey:  strings.TrimSpace(publicKey),
		privateKey: strings.TrimSpace(privateKey),
		subject:    strings.TrimSpace(subject),
		client:     client,
		ttl:        defaultTTLSeconds,
	}
}

func (t *WebPushTransport) IsConfigured() bool {
	return t != nil && t.publicKey != "" && t.privateKey != "" && t.subject != ""
}

// PublicKey exposes the VAPID public key for subscribing clients.
func (t *WebPushTransport) PublicKey() string {
	if t == nil {
		return ""
	}
	return t.publicKey
}

func (t *WebPushTransport) Send(ctx context.Context, endpoint domain.DeliveryEndpoint, payload Payload) error {
	if !t.IsConfigured() {
		return &SendError{Message: "web push transport is not configured"}
	}

	message, err := json.Marshal(payload)
	if err != nil {
		return &SendError{Message: "failed to encode payload", Cause: err}
	}

	subscription := &webpush.Subscription{
		Endpoint: endpoint.Endpoint,
		Keys: webpush.Keys{
			P256dh: endpoint.P256DH,
			Auth:   endpoint.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, subscription, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.subject,
		TTL:             t.ttl,
		Urgency:         webpush.UrgencyNormal,
		VAPIDPublicKey:  t.publicKey,
		VAPIDPrivateKey: t.privateKey,
	})
	if err != nil {
		return &SendError{
			Message:   "push request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	statusCode := resp.StatusCode
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	// 404 and 410 mean the subscription no longer exists at the provider.
	if statusCode == http.StatusNotFound || statusCode == http.StatusGone {
		return &SendError{
			StatusCode:   statusCode,
			Message:      "subscription is no longer valid",
			EndpointGone: true,
		}
	}

	return &SendError{
		StatusCode: statusCode,
		Message:    sendErrorMessage(statusCode, strings.TrimSpace(string(body))),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func sendErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("push service returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
