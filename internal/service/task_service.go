package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/pkg/apierror"
)

type TaskStore interface {
	Create(ctx context.Context, t model.Task) error
	FindByID(ctx context.Context, id string) (model.Task, error)
	List(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, int, error)
	Update(ctx context.Context, t model.Task) error
	SoftDelete(ctx context.Context, id string) error
	ReplaceAssignees(ctx context.Context, taskID string, assignees []model.TaskAssignee) error
	ListAssignees(ctx context.Context, taskID string) ([]model.TaskAssignee, error)
}

type MembershipStore interface {
	FindMember(ctx context.Context, projectID string, userID string) (model.ProjectMember, error)
}

// Notifier fans a notification out to one user.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind string, title string, content string, metadata map[string]any)
}

type TaskService struct {
	tasks         TaskStore
	members       MembershipStore
	notifications Notifier
	activity      ActivityRecorder
	bus           event.Bus
}

func NewTaskService(tasks TaskStore, members MembershipStore, notifications Notifier, activity ActivityRecorder, bus event.Bus) *TaskService {
	return &TaskService{tasks: tasks, members: members, notifications: notifications, activity: activity, bus: bus}
}

func (s *TaskService) Create(ctx context.Context, req model.CreateTaskRequest, creator *model.AuthClaims) (model.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return model.Task{}, apierror.BadRequest("task title is required", "")
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return model.Task{}, apierror.BadRequest("project_id is required", "")
	}

	if err := s.requireMember(ctx, req.ProjectID, creator); err != nil {
		return model.Task{}, err
	}

	status := req.Status
	if status == "" {
		status = model.TaskStatusTodo
	}
	if !model.ValidTaskStatus(status) {
		return model.Task{}, apierror.BadRequest("invalid task status", status)
	}

	priority := req.Priority
	if priority == "" {
		priority = model.TaskPriorityMedium
	}
	if !model.ValidTaskPriority(priority) {
		return model.Task{}, apierror.BadRequest("invalid task priority", priority)
	}

	dueStart, err := parseDate(req.DueStart)
	if err != nil {
		return model.Task{}, apierror.BadRequest("invalid due_start", req.DueStart)
	}
	dueEnd, err := parseDate(req.DueEnd)
	if err != nil {
		return model.Task{}, apierror.BadRequest("invalid due_end", req.DueEnd)
	}
	if dueEnd.Before(dueStart) {
		return model.Task{}, apierror.BadRequest("due_end cannot precede due_start", "")
	}

	startDate, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return model.Task{}, apierror.BadRequest("invalid start_date", *req.StartDate)
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return model.Task{}, apierror.BadRequest("invalid end_date", *req.EndDate)
	}

	if req.ParentTaskID != nil {
		parent, err := s.tasks.FindByID(ctx, *req.ParentTaskID)
		if err != nil {
			return model.Task{}, err
		}
		if parent.ProjectID != req.ProjectID {
			return model.Task{}, apierror.BadRequest("parent task belongs to another project", "")
		}
	}

	now := time.Now().UTC()
	task := model.Task{
		ID:             uuid.NewString(),
		ProjectID:      req.ProjectID,
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Status:         status,
		Priority:       priority,
		DueStart:       dueStart,
		DueEnd:         dueEnd,
		StartDate:      startDate,
		EndDate:        endDate,
		EstimatedHours: req.EstimatedHours,
		ParentTaskID:   req.ParentTaskID,
		CreatedByID:    creator.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return model.Task{}, err
	}

	if len(req.AssigneeIDs) > 0 {
		task.Assignees, err = s.assign(ctx, task, req.AssigneeIDs, creator)
		if err != nil {
			return model.Task{}, err
		}
	}

	s.activity.Log(ctx, "task.create", actorFromClaims(creator), "success", task.ID, nil, task, "")

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeTaskCreated,
		Payload:   task,
		Timestamp: now.Format(time.RFC3339Nano),
		ActorID:   creator.UserID,
	})

	return task, nil
}

func (s *TaskService) Get(ctx context.Context, taskID string, requester *model.AuthClaims) (model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return model.Task{}, err
	}

	if err := s.requireMember(ctx, task.ProjectID, requester); err != nil {
		return model.Task{}, err
	}

	return task, nil
}

func (s *TaskService) List(ctx context.Context, filter model.TaskFilter, requester *model.AuthClaims) ([]model.Task, *model.Meta, error) {
	if filter.Status != "" && !model.ValidTaskStatus(filter.Status) {
		return nil, nil, apierror.BadRequest("invalid task status", filter.Status)
	}
	if filter.Priority != "" && !model.ValidTaskPriority(filter.Priority) {
		return nil, nil, apierror.BadRequest("invalid task priority", filter.Priority)
	}

	tasks, total, err := s.tasks.List(ctx, requester.UserID, filter)
	if err != nil {
		return nil, nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	return tasks, model.NewMeta(page, limit, total), nil
}

func (s *TaskService) Update(ctx context.Context, taskID string, req model.UpdateTaskRequest, requester *model.AuthClaims) (model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return model.Task{}, err
	}

	if err := s.requireMember(ctx, task.ProjectID, requester); err != nil {
		return model.Task{}, err
	}

	before := task
	statusChanged := false

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return model.Task{}, apierror.BadRequest("task title cannot be empty", "")
		}
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !model.ValidTaskStatus(*req.Status) {
			return model.Task{}, apierror.BadRequest("invalid task status", *req.Status)
		}
		statusChanged = task.Status != *req.Status
		task.Status = *req.Status
	}
	if req.Priority != nil {
		if !model.ValidTaskPriority(*req.Priority) {
			return model.Task{}, apierror.BadRequest("invalid task priority", *req.Priority)
		}
		task.Priority = *req.Priority
	}
	if req.DueStart != nil {
		dueStart, err := parseDate(*req.DueStart)
		if err != nil {
			return model.Task{}, apierror.BadRequest("invalid due_start", *req.DueStart)
		}
		task.DueStart = dueStart
	}
	if req.DueEnd != nil {
		dueEnd, err := parseDate(*req.DueEnd)
		if err != nil {
			return model.Task{}, apierror.BadRequest("invalid due_end", *req.DueEnd)
		}
		task.DueEnd = dueEnd
	}
	if task.DueEnd.Before(task.DueStart) {
		return model.Task{}, apierror.BadRequest("due_end cannot precede due_start", "")
	}
	if req.StartDate != nil {
		startDate, err := parseOptionalDate(req.StartDate)
		if err != nil {
			return model.Task{}, apierror.BadRequest("invalid start_date", *req.StartDate)
		}
		task.StartDate = startDate
	}
	if req.EndDate != nil {
		endDate, err := parseOptionalDate(req.EndDate)
		if err != nil {
			return model.Task{}, apierror.BadRequest("invalid end_date", *req.EndDate)
		}
		task.EndDate = endDate
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = req.EstimatedHours
	}
	if req.IsArchived != nil {
		task.IsArchived = *req.IsArchived
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return model.Task{}, err
	}

	if req.AssigneeIDs != nil {
		task.Assignees, err = s.assign(ctx, task, *req.AssigneeIDs, requester)
		if err != nil {
			return model.Task{}, err
		}
	} else {
		task.Assignees, err = s.tasks.ListAssignees(ctx, task.ID)
		if err != nil {
			return model.Task{}, err
		}
	}

	if statusChanged {
		for _, assignee := range task.Assignees {
			if assignee.UserID == requester.UserID {
				continue
			}
			s.notifications.Notify(ctx, assignee.UserID, model.NotificationTaskUpdated,
				"Task status changed",
				"Task \""+task.Title+"\" moved to "+task.Status,
				map[string]any{"task_id": task.ID, "project_id": task.ProjectID})
		}
	}

	s.activity.Log(ctx, "task.update", actorFromClaims(requester), "success", task.ID, before, task, "")

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeTaskUpdated,
		Payload:   task,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   requester.UserID,
	})

	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, taskID string, requester *model.AuthClaims) error {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}

	member, err := s.memberOf(ctx, task.ProjectID, requester)
	if err != nil {
		return err
	}

	// Only the creator or a project manager may delete a task.
	if task.CreatedByID != requester.UserID && member.Role != model.ProjectRoleManager {
		return model.ErrForbidden
	}

	if err := s.tasks.SoftDelete(ctx, taskID); err != nil {
		return err
	}

	s.activity.Log(ctx, "task.delete", actorFromClaims(requester), "success", taskID, task, nil, "")

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeTaskDeleted,
		Payload:   map[string]string{"task_id": taskID, "project_id": task.ProjectID},
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		ActorID:   requester.UserID,
	})

	return nil
}

// assign replaces the assignee set. Every assignee must be an active
// member of the task's project. Newly added assignees are notified.
func (s *TaskService) assign(ctx context.Context, task model.Task, userIDs []string, actor *model.AuthClaims) ([]model.TaskAssignee, error) {
	existing, err := s.tasks.ListAssignees(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	already := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		already[a.UserID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(userIDs))
	assignees := make([]model.TaskAssignee, 0, len(userIDs))
	for _, userID := range userIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		if _, err := s.members.FindMember(ctx, task.ProjectID, userID); err != nil {
			return nil, err
		}

		assignees = append(assignees, model.TaskAssignee{
			ID:     uuid.NewString(),
			TaskID: task.ID,
			UserID: userID,
		})
	}

	if err := s.tasks.ReplaceAssignees(ctx, task.ID, assignees); err != nil {
		return nil, err
	}

	for _, a := range assignees {
		if _, was := already[a.UserID]; was || a.UserID == actor.UserID {
			continue
		}
		s.notifications.Notify(ctx, a.UserID, model.NotificationTaskAssigned,
			"New task assigned",
			"You have been assigned to the task \""+task.Title+"\"",
			map[string]any{"task_id": task.ID, "project_id": task.ProjectID})

		s.bus.Publish(event.Event{
			ID:        uuid.NewString(),
			Type:      event.TypeTaskAssigned,
			Payload:   map[string]string{"task_id": task.ID, "user_id": a.UserID},
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			ActorID:   actor.UserID,
		})
	}

	return assignees, nil
}

func (s *TaskService) requireMember(ctx context.Context, projectID string, requester *model.AuthClaims) error {
	_, err := s.memberOf(ctx, projectID, requester)
	return err
}

func (s *TaskService) memberOf(ctx context.Context, projectID string, requester *model.AuthClaims) (model.ProjectMember, error) {
	if requester.Role == model.RoleAdmin {
		return model.ProjectMember{ProjectID: projectID, UserID: requester.UserID, Role: model.ProjectRoleManager}, nil
	}
	return s.members.FindMember(ctx, projectID, requester.UserID)
}
