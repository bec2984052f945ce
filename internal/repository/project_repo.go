package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskhub/internal/model"
)

type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = `id, name, description, status, due_start, due_end,
	is_archived, archived_at, created_by_id, created_at, updated_at`

func scanProject(row pgx.Row) (model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.DueStart, &p.DueEnd,
		&p.IsArchived, &p.ArchivedAt, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProjectRepository) Create(ctx context.Context, p model.Project) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO projects (id, name, description, status, due_start, due_end,
		                       is_archived, created_by_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Description, p.Status, p.DueStart, p.DueEnd,
		p.IsArchived, p.CreatedByID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (model.Project, error) {
	if !isUUID(id) {
		return model.Project{}, model.ErrProjectNotFound
	}
	p, err := scanProject(r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Project{}, model.ErrProjectNotFound
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("find project: %w", err)
	}
	return p, nil
}

func (r *ProjectRepository) ListForUser(ctx context.Context, userID string, includeArchived bool) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p
		 WHERE EXISTS (SELECT 1 FROM project_members m
		               WHERE m.project_id = p.id AND m.user_id = $1 AND m.is_active)`
	if !includeArchived {
		query += ` AND NOT p.is_archived`
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Update(ctx context.Context, p model.Project) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET name = $2, description = $3, status = $4,
		        due_start = $5, due_end = $6, updated_at = $7
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Status, p.DueStart, p.DueEnd, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	var archivedAt *time.Time
	if archived {
		now := time.Now().UTC()
		archivedAt = &now
	}

	if !isUUID(id) {
		return model.ErrProjectNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET is_archived = $2, archived_at = $3, updated_at = $4
		 WHERE id = $1`,
		id, archived, archivedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return model.ErrProjectNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, m model.ProjectMember) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO project_members (id, project_id, user_id, role, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (project_id, user_id)
		 DO UPDATE SET role = EXCLUDED.role, is_active = TRUE`,
		m.ID, m.ProjectID, m.UserID, m.Role, m.IsActive, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("add project member: %w", err)
	}
	return nil
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID string, userID string) error {
	if !isUUID(projectID) || !isUUID(userID) {
		return model.ErrNotProjectMember
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE project_members SET is_active = FALSE
		 WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	if err != nil {
		return fmt.Errorf("remove project member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotProjectMember
	}
	return nil
}

func (r *ProjectRepository) FindMember(ctx context.Context, projectID string, userID string) (model.ProjectMember, error) {
	if !isUUID(projectID) || !isUUID(userID) {
		return model.ProjectMember{}, model.ErrNotProjectMember
	}
	var m model.ProjectMember
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, user_id, role, is_active, created_at
		 FROM project_members
		 WHERE project_id = $1 AND user_id = $2 AND is_active`,
		projectID, userID).
		Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.ProjectMember{}, model.ErrNotProjectMember
	}
	if err != nil {
		return model.ProjectMember{}, fmt.Errorf("find project member: %w", err)
	}
	return m, nil
}

func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]model.ProjectMember, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.project_id, m.user_id, m.role, m.is_active, m.created_at,
		        u.username, u.firstname, u.lastname
		 FROM project_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.project_id = $1 AND m.is_active
		 ORDER BY u.username`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	members := make([]model.ProjectMember, 0)
	for rows.Next() {
		var m model.ProjectMember
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &m.IsActive,
			&m.CreatedAt, &m.Username, &m.Firstname, &m.Lastname); err != nil {
			return nil, fmt.Errorf("scan project member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
