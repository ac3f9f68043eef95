package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/push-relay/internal/domain"
)

type SubscriptionService interface {
	Subscribe(ctx context.Context, endpoint *domain.DeliveryEndpoint) (*domain.DeliveryEndpoint, error)
	Unsubscribe(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]domain.DeliveryEndpoint, error)
}

// VAPIDKeySource exposes the public half of the signing key pair so browser
// clients can subscribe against it.
type VAPIDKeySource interface {
	IsConfigured() bool
	PublicKey() string
}

type SubscriptionHandler struct {
	service SubscriptionService
	keys    VAPIDKeySource
}

func NewSubscriptionHandler(service SubscriptionService, keys VAPIDKeySource) (*SubscriptionHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("subscription service is required")
	}
	if keys == nil {
		return nil, fmt.Errorf("vapid key source is required")
	}
	return &SubscriptionHandler{service: service, keys: keys}, nil
}

func RegisterSubscriptionRoutes(router fiber.Router, service SubscriptionService, keys VAPIDKeySource) error {
	h, err := NewSubscriptionHandler(service, keys)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/subscriptions", h.CreateSubscription)
	v1.Delete("/subscriptions/:id", h.DeleteSubscription)
	v1.Get("/users/:userId/subscriptions", h.ListSubscriptions)
	v1.Get("/vapid-public-key", h.GetVAPIDPublicKey)

	return nil
}

type createSubscriptionRequest struct {
	UserID   string                 `json:"userId"`
	Endpoint string                 `json:"endpoint"`
	Keys     subscriptionKeysObject `json:"keys"`
}

type subscriptionKeysObject struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type subscriptionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Endpoint  string    `json:"endpoint"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *SubscriptionHandler) CreateSubscription(c *fiber.Ctx) error {
	var req createSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	endpoint := domain.DeliveryEndpoint{
		UserID:   strings.TrimSpace(req.UserID),
		Endpoint: strings.TrimSpace(req.Endpoint),
		P256DH:   strings.TrimSpace(req.Keys.P256DH),
		Auth:     strings.TrimSpace(req.Keys.Auth),
	}

	created, err := h.service.Subscribe(c.Context(), &endpoint)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toSubscriptionResponse(created))
}

func (h *SubscriptionHandler) DeleteSubscription(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Unsubscribe(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SubscriptionHandler) ListSubscriptions(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	endpoints, err := h.service.ListForUser(c.Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]subscriptionResponse, 0, len(endpoints))
	for i := range endpoints {
		responses = append(responses, toSubscriptionResponse(&endpoints[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": responses,
	})
}

func (h *SubscriptionHandler) GetVAPIDPublicKey(c *fiber.Ctx) error {
	if !h.keys.IsConfigured() {
		return fiber.NewError(fiber.StatusServiceUnavailable, "push transport is not configured")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"publicKey": h.keys.PublicKey(),
	})
}

func toSubscriptionResponse(e *domain.DeliveryEndpoint) subscriptionResponse {
	if e == nil {
		return subscriptionResponse{}
	}

	// The p256dh and auth secrets stay server-side.
	return subscriptionResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		Endpoint:  e.Endpoint,
		CreatedAt: e.CreatedAt,
	}
}
