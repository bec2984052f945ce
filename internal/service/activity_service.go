package service

import (
	"context"
	"log/slog"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// ActivityRecorder captures who did what. Recording is best-effort and
// must never fail the operation being recorded.
type ActivityRecorder interface {
	Log(ctx context.Context, action string, actor model.ActivityActor, status string, resource string, before any, after any, errText string)
}

func actorFromClaims(claims *model.AuthClaims) model.ActivityActor {
	if claims == nil {
		return model.ActivityActor{}
	}
	return model.ActivityActor{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}
}

// ActivityService records who did what. Logging is best-effort: a
// failed insert never fails the operation being recorded.
type ActivityService struct {
	repo *repository.ActivityRepository
}

func NewActivityService(repo *repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

func (s *ActivityService) Log(ctx context.Context, action string, actor model.ActivityActor, status string, resource string, before any, after any, errText string) {
	if s == nil {
		return
	}

	entry := model.ActivityEntry{
		Action:     action,
		OccurredAt: time.Now().UTC(),
		Actor:      actor,
		Status:     status,
		Resource:   resource,
		Before:     before,
		After:      after,
		Error:      errText,
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("activity log write failed", "action", action, "error", err)
	}
}

func (s *ActivityService) Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	return s.repo.Query(ctx, query)
}
