package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"taskhub/internal/event"
	"taskhub/internal/model"
)

type fakeTaskStore struct {
	tasks     map[string]model.Task
	assignees map[string][]model.TaskAssignee
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		tasks:     map[string]model.Task{},
		assignees: map[string][]model.TaskAssignee{},
	}
}

func (f *fakeTaskStore) Create(_ context.Context, t model.Task) error {
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskStore) FindByID(_ context.Context, id string) (model.Task, error) {
	t, ok := f.tasks[id]
	if !ok || t.DeletedAt != nil {
		return model.Task{}, model.ErrTaskNotFound
	}
	t.Assignees = f.assignees[id]
	return t, nil
}

func (f *fakeTaskStore) List(_ context.Context, _ string, _ model.TaskFilter) ([]model.Task, int, error) {
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (f *fakeTaskStore) Update(_ context.Context, t model.Task) error {
	if _, ok := f.tasks[t.ID]; !ok {
		return model.ErrTaskNotFound
	}
	t.Assignees = nil
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskStore) SoftDelete(_ context.Context, id string) error {
	t, ok := f.tasks[id]
	if !ok {
		return model.ErrTaskNotFound
	}
	now := t.UpdatedAt
	t.DeletedAt = &now
	f.tasks[id] = t
	return nil
}

func (f *fakeTaskStore) ReplaceAssignees(_ context.Context, taskID string, assignees []model.TaskAssignee) error {
	f.assignees[taskID] = assignees
	return nil
}

func (f *fakeTaskStore) ListAssignees(_ context.Context, taskID string) ([]model.TaskAssignee, error) {
	return f.assignees[taskID], nil
}

type fakeMembershipStore struct {
	// project id -> user id -> role
	members map[string]map[string]string
}

func (f *fakeMembershipStore) FindMember(_ context.Context, projectID string, userID string) (model.ProjectMember, error) {
	role, ok := f.members[projectID][userID]
	if !ok {
		return model.ProjectMember{}, model.ErrNotProjectMember
	}
	return model.ProjectMember{ProjectID: projectID, UserID: userID, Role: role, IsActive: true}, nil
}

type recordedNotification struct {
	userID string
	kind   string
}

type fakeNotifier struct {
	sent []recordedNotification
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, kind string, _ string, _ string, _ map[string]any) {
	f.sent = append(f.sent, recordedNotification{userID: userID, kind: kind})
}

type recordedActivity struct {
	action   string
	actorID  string
	status   string
	resource string
}

type fakeRecorder struct {
	entries []recordedActivity
}

func (f *fakeRecorder) Log(_ context.Context, action string, actor model.ActivityActor, status string, resource string, _ any, _ any, _ string) {
	f.entries = append(f.entries, recordedActivity{action: action, actorID: actor.UserID, status: status, resource: resource})
}

func newTestTaskService() (*TaskService, *fakeTaskStore, *fakeNotifier, *fakeRecorder, *event.InMemoryBus) {
	tasks := newFakeTaskStore()
	members := &fakeMembershipStore{members: map[string]map[string]string{
		"p-1": {
			"u-1": model.ProjectRoleManager,
			"u-2": model.ProjectRoleMember,
			"u-3": model.ProjectRoleMember,
		},
	}}
	notifier := &fakeNotifier{}
	recorder := &fakeRecorder{}
	bus := event.NewBus()
	return NewTaskService(tasks, members, notifier, recorder, bus), tasks, notifier, recorder, bus
}

func managerClaims() *model.AuthClaims {
	return &model.AuthClaims{UserID: "u-1", Username: "alice", Role: model.RoleMember}
}

func TestTaskCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates with defaults and notifies assignees", func(t *testing.T) {
		svc, _, notifier, _, _ := newTestTaskService()

		task, err := svc.Create(ctx, model.CreateTaskRequest{
			ProjectID:   "p-1",
			Title:       "Ship the login page",
			DueStart:    "2026-09-01",
			DueEnd:      "2026-09-15",
			AssigneeIDs: []string{"u-2", "u-3"},
		}, managerClaims())
		require.NoError(t, err)

		require.Equal(t, model.TaskStatusTodo, task.Status)
		require.Equal(t, model.TaskPriorityMedium, task.Priority)
		require.Equal(t, "u-1", task.CreatedByID)
		require.Len(t, task.Assignees, 2)

		require.Len(t, notifier.sent, 2)
		for _, n := range notifier.sent {
			require.Equal(t, model.NotificationTaskAssigned, n.kind)
		}
	})

	t.Run("creator is not notified about their own assignment", func(t *testing.T) {
		svc, _, notifier, _, _ := newTestTaskService()

		_, err := svc.Create(ctx, model.CreateTaskRequest{
			ProjectID:   "p-1",
			Title:       "Self-assigned chore",
			DueStart:    "2026-09-01",
			DueEnd:      "2026-09-02",
			AssigneeIDs: []string{"u-1"},
		}, managerClaims())
		require.NoError(t, err)
		require.Empty(t, notifier.sent)
	})

	t.Run("rejects non-members and bad input", func(t *testing.T) {
		svc, _, _, _, _ := newTestTaskService()

		_, err := svc.Create(ctx, model.CreateTaskRequest{
			ProjectID: "p-1", Title: "x", DueStart: "2026-09-01", DueEnd: "2026-09-02",
		}, &model.AuthClaims{UserID: "stranger", Role: model.RoleMember})
		require.ErrorIs(t, err, model.ErrNotProjectMember)

		_, err = svc.Create(ctx, model.CreateTaskRequest{
			ProjectID: "p-1", Title: "", DueStart: "2026-09-01", DueEnd: "2026-09-02",
		}, managerClaims())
		require.Error(t, err)

		_, err = svc.Create(ctx, model.CreateTaskRequest{
			ProjectID: "p-1", Title: "x", DueStart: "2026-09-10", DueEnd: "2026-09-02",
		}, managerClaims())
		require.Error(t, err, "due_end before due_start")

		_, err = svc.Create(ctx, model.CreateTaskRequest{
			ProjectID: "p-1", Title: "x", Status: "bogus", DueStart: "2026-09-01", DueEnd: "2026-09-02",
		}, managerClaims())
		require.Error(t, err)
	})

	t.Run("assignee must be a project member", func(t *testing.T) {
		svc, _, _, _, _ := newTestTaskService()

		_, err := svc.Create(ctx, model.CreateTaskRequest{
			ProjectID:   "p-1",
			Title:       "Bad assignment",
			DueStart:    "2026-09-01",
			DueEnd:      "2026-09-02",
			AssigneeIDs: []string{"outsider"},
		}, managerClaims())
		require.ErrorIs(t, err, model.ErrNotProjectMember)
	})
}

func TestTaskUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	create := func(t *testing.T, svc *TaskService) model.Task {
		t.Helper()
		task, err := svc.Create(ctx, model.CreateTaskRequest{
			ProjectID:   "p-1",
			Title:       "Review API contract",
			DueStart:    "2026-09-01",
			DueEnd:      "2026-09-15",
			AssigneeIDs: []string{"u-2"},
		}, managerClaims())
		require.NoError(t, err)
		return task
	}

	t.Run("status change notifies assignees", func(t *testing.T) {
		svc, _, notifier, _, _ := newTestTaskService()
		task := create(t, svc)
		notifier.sent = nil

		status := model.TaskStatusDone
		updated, err := svc.Update(ctx, task.ID, model.UpdateTaskRequest{Status: &status}, managerClaims())
		require.NoError(t, err)
		require.Equal(t, model.TaskStatusDone, updated.Status)

		require.Len(t, notifier.sent, 1)
		require.Equal(t, "u-2", notifier.sent[0].userID)
		require.Equal(t, model.NotificationTaskUpdated, notifier.sent[0].kind)
	})

	t.Run("reassignment only notifies newly added users", func(t *testing.T) {
		svc, _, notifier, _, _ := newTestTaskService()
		task := create(t, svc)
		notifier.sent = nil

		assignees := []string{"u-2", "u-3"}
		_, err := svc.Update(ctx, task.ID, model.UpdateTaskRequest{AssigneeIDs: &assignees}, managerClaims())
		require.NoError(t, err)

		require.Len(t, notifier.sent, 1)
		require.Equal(t, "u-3", notifier.sent[0].userID)
	})

	t.Run("invalid transitions are rejected", func(t *testing.T) {
		svc, _, _, _, _ := newTestTaskService()
		task := create(t, svc)

		bogus := "archived"
		_, err := svc.Update(ctx, task.ID, model.UpdateTaskRequest{Status: &bogus}, managerClaims())
		require.Error(t, err)

		empty := "   "
		_, err = svc.Update(ctx, task.ID, model.UpdateTaskRequest{Title: &empty}, managerClaims())
		require.Error(t, err)
	})
}

func TestTaskDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creator can soft delete, task disappears", func(t *testing.T) {
		svc, store, _, _, _ := newTestTaskService()

		task, err := svc.Create(ctx, model.CreateTaskRequest{
			ProjectID: "p-1", Title: "Temp", DueStart: "2026-09-01", DueEnd: "2026-09-02",
		}, managerClaims())
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, task.ID, managerClaims()))

		_, err = svc.Get(ctx, task.ID, managerClaims())
		require.ErrorIs(t, err, model.ErrTaskNotFound)

		// The row stays behind the soft delete marker.
		stored := store.tasks[task.ID]
		require.NotNil(t, stored.DeletedAt)
	})

	t.Run("plain member cannot delete another member's task", func(t *testing.T) {
		svc, _, _, _, _ := newTestTaskService()

		task, err := svc.Create(ctx, model.CreateTaskRequest{
			ProjectID: "p-1", Title: "Protected", DueStart: "2026-09-01", DueEnd: "2026-09-02",
		}, managerClaims())
		require.NoError(t, err)

		err = svc.Delete(ctx, task.ID, &model.AuthClaims{UserID: "u-2", Role: model.RoleMember})
		require.ErrorIs(t, err, model.ErrForbidden)
	})
}

func TestTaskActivityLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _, recorder, _ := newTestTaskService()

	task, err := svc.Create(ctx, model.CreateTaskRequest{
		ProjectID: "p-1", Title: "Audited", DueStart: "2026-09-01", DueEnd: "2026-09-02",
	}, managerClaims())
	require.NoError(t, err)

	status := model.TaskStatusInProgress
	_, err = svc.Update(ctx, task.ID, model.UpdateTaskRequest{Status: &status}, managerClaims())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, task.ID, managerClaims()))

	require.Len(t, recorder.entries, 3)
	for i, action := range []string{"task.create", "task.update", "task.delete"} {
		entry := recorder.entries[i]
		require.Equal(t, action, entry.action)
		require.Equal(t, "u-1", entry.actorID)
		require.Equal(t, "success", entry.status)
		require.Equal(t, task.ID, entry.resource)
	}
}

func TestTaskEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, _, _, _, bus := newTestTaskService()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	task, err := svc.Create(ctx, model.CreateTaskRequest{
		ProjectID: "p-1", Title: "Observable", DueStart: "2026-09-01", DueEnd: "2026-09-02",
	}, managerClaims())
	require.NoError(t, err)

	e := <-events
	require.Equal(t, event.TypeTaskCreated, e.Type)
	require.Equal(t, "u-1", e.ActorID)

	payload, ok := e.Payload.(model.Task)
	require.True(t, ok)
	require.Equal(t, task.ID, payload.ID)
}
