package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/pkg/apierror"
)

type CommentService struct {
	comments      *repository.CommentRepository
	tasks         *repository.TaskRepository
	members       MembershipStore
	notifications Notifier
	activity      ActivityRecorder
	bus           event.Bus
}

func NewCommentService(comments *repository.CommentRepository, tasks *repository.TaskRepository,
	members MembershipStore, notifications Notifier, activity ActivityRecorder, bus event.Bus) *CommentService {
	return &CommentService{comments: comments, tasks: tasks, members: members, notifications: notifications, activity: activity, bus: bus}
}

func (s *CommentService) Create(ctx context.Context, taskID string, req model.CreateCommentRequest, author *model.AuthClaims) (model.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return model.Comment{}, apierror.BadRequest("comment content is required", "")
	}

	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return model.Comment{}, err
	}
	if err := s.requireMember(ctx, task.ProjectID, author); err != nil {
		return model.Comment{}, err
	}

	now := time.Now().UTC()
	comment := model.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		AuthorID:  author.UserID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return model.Comment{}, err
	}

	// Assignees other than the author hear about new comments.
	assignees, err := s.tasks.ListAssignees(ctx, taskID)
	if err == nil {
		for _, a := range assignees {
			if a.UserID == author.UserID {
				continue
			}
			s.notifications.Notify(ctx, a.UserID, model.NotificationCommentAdded,
				"New comment",
				"New comment on the task \""+task.Title+"\"",
				map[string]any{"task_id": taskID, "comment_id": comment.ID})
		}
	}

	s.activity.Log(ctx, "comment.create", actorFromClaims(author), "success", comment.ID, nil, comment, "")

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeCommentCreated,
		Payload:   comment,
		Timestamp: now.Format(time.RFC3339Nano),
		ActorID:   author.UserID,
	})

	return comment, nil
}

func (s *CommentService) ListForTask(ctx context.Context, taskID string, requester *model.AuthClaims) ([]model.Comment, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, task.ProjectID, requester); err != nil {
		return nil, err
	}
	return s.comments.ListForTask(ctx, taskID)
}

func (s *CommentService) Update(ctx context.Context, commentID string, req model.UpdateCommentRequest, requester *model.AuthClaims) (model.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return model.Comment{}, apierror.BadRequest("comment content is required", "")
	}

	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return model.Comment{}, err
	}
	if comment.AuthorID != requester.UserID {
		return model.Comment{}, model.ErrForbidden
	}

	before := comment
	comment.Content = content
	comment.UpdatedAt = time.Now().UTC()

	if err := s.comments.Update(ctx, comment.ID, comment.Content); err != nil {
		return model.Comment{}, err
	}
	s.activity.Log(ctx, "comment.update", actorFromClaims(requester), "success", comment.ID, before, comment, "")
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, commentID string, requester *model.AuthClaims) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return err
	}

	if comment.AuthorID != requester.UserID && requester.Role != model.RoleAdmin {
		task, err := s.tasks.FindByID(ctx, comment.TaskID)
		if err != nil {
			return err
		}
		member, err := s.members.FindMember(ctx, task.ProjectID, requester.UserID)
		if err != nil {
			return err
		}
		if member.Role != model.ProjectRoleManager {
			return model.ErrForbidden
		}
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	s.activity.Log(ctx, "comment.delete", actorFromClaims(requester), "success", commentID, comment, nil, "")
	return nil
}

func (s *CommentService) requireMember(ctx context.Context, projectID string, requester *model.AuthClaims) error {
	if requester.Role == model.RoleAdmin {
		return nil
	}
	_, err := s.members.FindMember(ctx, projectID, requester.UserID)
	return err
}
