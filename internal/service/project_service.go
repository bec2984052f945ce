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

type ProjectService struct {
	projects      *repository.ProjectRepository
	users         *repository.UserRepository
	notifications *NotificationService
	activity      ActivityRecorder
	bus           event.Bus
}

func NewProjectService(projects *repository.ProjectRepository, users *repository.UserRepository,
	notifications *NotificationService, activity ActivityRecorder, bus event.Bus) *ProjectService {
	return &ProjectService{projects: projects, users: users, notifications: notifications, activity: activity, bus: bus}
}

func (s *ProjectService) Create(ctx context.Context, req model.CreateProjectRequest, creator *model.AuthClaims) (model.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Project{}, apierror.BadRequest("project name is required", "")
	}

	dueStart, err := parseDate(req.DueStart)
	if err != nil {
		return model.Project{}, apierror.BadRequest("invalid due_start", req.DueStart)
	}
	dueEnd, err := parseOptionalDate(req.DueEnd)
	if err != nil {
		return model.Project{}, apierror.BadRequest("invalid due_end", *req.DueEnd)
	}
	if dueEnd != nil && dueEnd.Before(dueStart) {
		return model.Project{}, apierror.BadRequest("due_end cannot precede due_start", "")
	}

	now := time.Now().UTC()
	project := model.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      model.ProjectStatusActive,
		DueStart:    dueStart,
		DueEnd:      dueEnd,
		CreatedByID: creator.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projects.Create(ctx, project); err != nil {
		return model.Project{}, err
	}

	// The creator joins as project manager.
	member := model.ProjectMember{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		UserID:    creator.UserID,
		Role:      model.ProjectRoleManager,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := s.projects.AddMember(ctx, member); err != nil {
		return model.Project{}, err
	}

	s.activity.Log(ctx, "project.create", actorFromClaims(creator), "success", project.ID, nil, project, "")

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeProjectCreated,
		Payload:   project,
		Timestamp: now.Format(time.RFC3339Nano),
		ActorID:   creator.UserID,
	})

	return project, nil
}

func (s *ProjectService) Get(ctx context.Context, projectID string, requester *model.AuthClaims) (model.ProjectWithMembers, error) {
	if _, err := s.requireMember(ctx, projectID, requester); err != nil {
		return model.ProjectWithMembers{}, err
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return model.ProjectWithMembers{}, err
	}

	members, err := s.projects.ListMembers(ctx, projectID)
	if err != nil {
		return model.ProjectWithMembers{}, err
	}

	return model.ProjectWithMembers{Project: project, Members: members}, nil
}

func (s *ProjectService) List(ctx context.Context, requester *model.AuthClaims, includeArchived bool) ([]model.Project, error) {
	return s.projects.ListForUser(ctx, requester.UserID, includeArchived)
}

func (s *ProjectService) Update(ctx context.Context, projectID string, req model.UpdateProjectRequest, requester *model.AuthClaims) (model.Project, error) {
	if err := s.requireManager(ctx, projectID, requester); err != nil {
		return model.Project{}, err
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return model.Project{}, err
	}

	before := project

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return model.Project{}, apierror.BadRequest("project name cannot be empty", "")
		}
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		switch *req.Status {
		case model.ProjectStatusActive, model.ProjectStatusOnHold, model.ProjectStatusCompleted:
			project.Status = *req.Status
		default:
			return model.Project{}, apierror.BadRequest("invalid project status", *req.Status)
		}
	}
	if req.DueStart != nil {
		dueStart, err := parseDate(*req.DueStart)
		if err != nil {
			return model.Project{}, apierror.BadRequest("invalid due_start", *req.DueStart)
		}
		project.DueStart = dueStart
	}
	if req.DueEnd != nil {
		dueEnd, err := parseOptionalDate(req.DueEnd)
		if err != nil {
			return model.Project{}, apierror.BadRequest("invalid due_end", *req.DueEnd)
		}
		project.DueEnd = dueEnd
	}

	if err := s.projects.Update(ctx, project); err != nil {
		return model.Project{}, err
	}

	project.UpdatedAt = time.Now().UTC()
	s.activity.Log(ctx, "project.update", actorFromClaims(requester), "success", project.ID, before, project, "")
	return project, nil
}

func (s *ProjectService) SetArchived(ctx context.Context, projectID string, archived bool, requester *model.AuthClaims) error {
	if err := s.requireManager(ctx, projectID, requester); err != nil {
		return err
	}

	if err := s.projects.SetArchived(ctx, projectID, archived); err != nil {
		return err
	}

	s.activity.Log(ctx, "project.archive", actorFromClaims(requester), "success", projectID,
		nil, map[string]any{"archived": archived}, "")

	if archived {
		s.bus.Publish(event.Event{
			ID:        uuid.NewString(),
			Type:      event.TypeProjectArchived,
			Payload:   map[string]string{"project_id": projectID},
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			ActorID:   requester.UserID,
		})
	}

	return nil
}

func (s *ProjectService) Delete(ctx context.Context, projectID string, requester *model.AuthClaims) error {
	if requester.Role != model.RoleAdmin {
		return model.ErrForbidden
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return err
	}
	s.activity.Log(ctx, "project.delete", actorFromClaims(requester), "success", projectID, nil, nil, "")
	return nil
}

func (s *ProjectService) AddMember(ctx context.Context, projectID string, req model.AddMemberRequest, requester *model.AuthClaims) (model.ProjectMember, error) {
	if err := s.requireManager(ctx, projectID, requester); err != nil {
		return model.ProjectMember{}, err
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.ProjectRoleMember
	}
	if role != model.ProjectRoleManager && role != model.ProjectRoleMember {
		return model.ProjectMember{}, apierror.BadRequest("invalid project role", role)
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return model.ProjectMember{}, err
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return model.ProjectMember{}, err
	}

	member := model.ProjectMember{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.projects.AddMember(ctx, member); err != nil {
		return model.ProjectMember{}, err
	}

	s.notifications.Notify(ctx, user.ID, model.NotificationProjectInvited,
		"Added to project",
		"You have been added to the project \""+project.Name+"\"",
		map[string]any{"project_id": projectID})

	s.activity.Log(ctx, "project.member_add", actorFromClaims(requester), "success", projectID, nil, member, "")

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeMemberAdded,
		Payload:   member,
		Timestamp: member.CreatedAt.Format(time.RFC3339Nano),
		ActorID:   requester.UserID,
	})

	return member, nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, projectID string, userID string, requester *model.AuthClaims) error {
	if err := s.requireManager(ctx, projectID, requester); err != nil {
		return err
	}
	if err := s.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return err
	}
	s.activity.Log(ctx, "project.member_remove", actorFromClaims(requester), "success", projectID,
		map[string]any{"user_id": userID}, nil, "")
	return nil
}

// requireMember admits site admins and active project members.
func (s *ProjectService) requireMember(ctx context.Context, projectID string, requester *model.AuthClaims) (model.ProjectMember, error) {
	if requester.Role == model.RoleAdmin {
		return model.ProjectMember{ProjectID: projectID, UserID: requester.UserID, Role: model.ProjectRoleManager}, nil
	}
	return s.projects.FindMember(ctx, projectID, requester.UserID)
}

func (s *ProjectService) requireManager(ctx context.Context, projectID string, requester *model.AuthClaims) error {
	member, err := s.requireMember(ctx, projectID, requester)
	if err != nil {
		return err
	}
	if member.Role != model.ProjectRoleManager {
		return model.ErrForbidden
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
