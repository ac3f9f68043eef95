package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/push-relay/internal/domain"
	"github.com/kursadbilgin/push-relay/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NotificationService interface {
	Create(ctx context.Context, job *domain.NotificationJob) (*domain.NotificationJob, error)
	GetByID(ctx context.Context, id string) (*domain.NotificationJob, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.NotificationJob, int64, error)
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.CreateNotification)
	v1.Get("/notifications/:id", h.GetNotification)
	v1.Get("/notifications", h.ListNotifications)

	return nil
}

type createNotificationRequest struct {
	UserID string  `json:"userId"`
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	URL    *string `json:"url,omitempty"`
}

type notificationResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	URL          *string    `json:"url,omitempty"`
	Status       string     `json:"status"`
	AttemptCount int        `json:"attemptCount"`
	LastError    *string    `json:"lastError,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) CreateNotification(c *fiber.Ctx) error {
	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	job := domain.NotificationJob{
		UserID: strings.TrimSpace(req.UserID),
		Title:  strings.TrimSpace(req.Title),
		Body:   req.Body,
		URL:    req.URL,
	}

	created, err := h.service.Create(c.Context(), &job)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toNotificationResponse(created))
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	job, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNotificationResponse(job))
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	jobs, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: toNotificationResponses(jobs),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if rawUser := strings.TrimSpace(c.Query("userId")); rawUser != "" {
		params.UserID = &rawUser
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	return params, nil
}

func toNotificationResponses(jobs []domain.NotificationJob) []notificationResponse {
	responses := make([]notificationResponse, 0, len(jobs))
	for _, job := range jobs {
		j := job
		responses = append(responses, toNotificationResponse(&j))
	}
	return responses
}

func toNotificationResponse(j *domain.NotificationJob) notificationResponse {
	if j == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:           j.ID,
		UserID:       j.UserID,
		Title:        j.Title,
		Body:         j.Body,
		URL:          j.URL,
		Status:       j.Status.String(),
		AttemptCount: j.AttemptCount,
		LastError:    j.LastError,
		CreatedAt:    j.CreatedAt,
		ProcessedAt:  j.ProcessedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
