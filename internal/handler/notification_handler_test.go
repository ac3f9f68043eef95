package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/push-relay/internal/domain"
	"github.com/kursadbilgin/push-relay/internal/repository"
	"github.com/kursadbilgin/push-relay/internal/transport"
	"go.uber.org/zap"
)

func TestCreateNotification(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		createFn: func(ctx context.Context, job *domain.NotificationJob) (*domain.NotificationJob, error) {
			job.ID = "j-created"
			job.Status = domain.StatusPending
			job.CreatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
			if err := job.Validate(); err != nil {
				return nil, err
			}
			return job, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	validBody := `{"userId":"u1","title":"Order shipped","body":"Your order is on its way."}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/notifications", validBody)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(body))
	}

	var accepted map[string]any
	if err := json.Unmarshal(body, &accepted); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if accepted["id"] != "j-created" {
		t.Fatalf("id = %v, want j-created", accepted["id"])
	}
	if accepted["status"] != domain.StatusPending.String() {
		t.Fatalf("status = %v, want %s", accepted["status"], domain.StatusPending.String())
	}
	if accepted["attemptCount"] != float64(0) {
		t.Fatalf("attemptCount = %v, want 0", accepted["attemptCount"])
	}

	missingUserBody := `{"title":"t","body":"b"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", missingUserBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing user", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/notifications", "{not json")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed body", resp.StatusCode)
	}
}

func TestGetNotification(t *testing.T) {
	t.Parallel()

	processedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	reason := "no registered endpoints for user"
	svc := &stubNotificationService{
		getByIDFn: func(ctx context.Context, id string) (*domain.NotificationJob, error) {
			if id != "j1" {
				return nil, domain.ErrNotFound
			}
			return &domain.NotificationJob{
				ID:           "j1",
				UserID:       "u1",
				Title:        "t",
				Body:         "b",
				Status:       domain.StatusFailed,
				AttemptCount: 1,
				LastError:    &reason,
				ProcessedAt:  &processedAt,
			}, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/notifications/j1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if got["status"] != domain.StatusFailed.String() {
		t.Fatalf("status = %v, want %s", got["status"], domain.StatusFailed.String())
	}
	if got["lastError"] != reason {
		t.Fatalf("lastError = %v, want %q", got["lastError"], reason)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/notifications/missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListNotifications(t *testing.T) {
	t.Parallel()

	svc := &stubNotificationService{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.NotificationJob, int64, error) {
			if params.Status == nil || *params.Status != domain.StatusSent {
				t.Fatalf("status filter = %v, want SENT", params.Status)
			}
			if params.UserID == nil || *params.UserID != "u1" {
				t.Fatalf("user filter = %v, want u1", params.UserID)
			}
			return []domain.NotificationJob{
				{ID: "j1", UserID: "u1", Title: "t", Body: "b", Status: domain.StatusSent},
			}, 1, nil
		},
	}

	app := newNotificationTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/notifications?status=SENT&userId=u1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var got listNotificationsResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(got.Data) != 1 || got.Meta.Total != 1 {
		t.Fatalf("data = %d items (total %d), want 1", len(got.Data), got.Meta.Total)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/notifications?status=BOGUS", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid status filter", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/notifications?pageSize=9999", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized page", resp.StatusCode)
	}
}

type stubNotificationService struct {
	createFn  func(ctx context.Context, job *domain.NotificationJob) (*domain.NotificationJob, error)
	getByIDFn func(ctx context.Context, id string) (*domain.NotificationJob, error)
	listFn    func(ctx context.Context, params repository.ListParams) ([]domain.NotificationJob, int64, error)
}

func (s *stubNotificationService) Create(ctx context.Context, job *domain.NotificationJob) (*domain.NotificationJob, error) {
	if s.createFn == nil {
		return job, nil
	}
	return s.createFn(ctx, job)
}

func (s *stubNotificationService) GetByID(ctx context.Context, id string) (*domain.NotificationJob, error) {
	if s.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubNotificationService) List(ctx context.Context, params repository.ListParams) ([]domain.NotificationJob, int64, error) {
	if s.listFn == nil {
		return nil, 0, nil
	}
	return s.listFn(ctx, params)
}

func newNotificationTestApp(t *testing.T, svc NotificationService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	if err := RegisterNotificationRoutes(app, svc); err != nil {
		t.Fatalf("RegisterNotificationRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}
