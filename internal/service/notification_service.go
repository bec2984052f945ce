package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

type NotificationService struct {
	repo *repository.NotificationRepository
	bus  event.Bus
}

func NewNotificationService(repo *repository.NotificationRepository, bus event.Bus) *NotificationService {
	return &NotificationService{repo: repo, bus: bus}
}

// Notify persists a notification and publishes it on the bus so
// connected dashboard clients see it live. A persistence failure is
// logged but never fails the operation that triggered it.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind string, title string, content string, metadata map[string]any) {
	n := model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		slog.Error("notification persist failed", "user_id", userID, "type", kind, "error", err)
		return
	}

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeNotificationCreated,
		Payload:   n,
		Timestamp: n.CreatedAt.Format(time.RFC3339Nano),
		ActorID:   userID,
	})
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page int, limit int) ([]model.Notification, *model.Meta, error) {
	notifications, total, err := s.repo.ListForUser(ctx, userID, unreadOnly, page, limit)
	if err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return notifications, model.NewMeta(page, limit, total), nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id string, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
