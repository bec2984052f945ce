package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskhub/internal/model"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

const taskColumns = `id, project_id, title, description, status, priority,
	due_start, due_end, start_date, end_date, estimated_hours, parent_task_id,
	is_archived, created_by_id, created_at, updated_at, deleted_at`

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.DueStart, &t.DueEnd, &t.StartDate, &t.EndDate,
		&t.EstimatedHours, &t.ParentTaskID, &t.IsArchived, &t.CreatedByID,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	return t, err
}

func (r *TaskRepository) Create(ctx context.Context, t model.Task) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, priority,
		                    due_start, due_end, start_date, end_date, estimated_hours,
		                    parent_task_id, is_archived, created_by_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		t.ID, t.ProjectID, t.Title, t.Description, t.Status, t.Priority,
		t.DueStart, t.DueEnd, t.StartDate, t.EndDate, t.EstimatedHours,
		t.ParentTaskID, t.IsArchived, t.CreatedByID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (model.Task, error) {
	if !isUUID(id) {
		return model.Task{}, model.ErrTaskNotFound
	}
	t, err := scanTask(r.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND deleted_at IS NULL`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, model.ErrTaskNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("find task: %w", err)
	}

	assignees, err := r.ListAssignees(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	t.Assignees = assignees
	return t, nil
}

// List applies the filter and returns one page plus the total count.
// Listings are always scoped to projects the calling user belongs to.
func (r *TaskRepository) List(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, int, error) {
	// Malformed uuid filters cannot match any row; answer with an empty
	// page instead of letting postgres reject the cast.
	for _, id := range []string{filter.ProjectID, filter.AssignedTo, filter.ParentTaskID} {
		if id != "" && !isUUID(id) {
			return []model.Task{}, 0, nil
		}
	}

	where := []string{
		"t.deleted_at IS NULL",
		`EXISTS (SELECT 1 FROM project_members m
		         WHERE m.project_id = t.project_id AND m.user_id = $1 AND m.is_active)`,
	}
	args := []any{userID}

	addArg := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.ProjectID != "" {
		addArg("t.project_id = $%d", filter.ProjectID)
	}
	if filter.Status != "" {
		addArg("t.status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		addArg("t.priority = $%d", filter.Priority)
	}
	if filter.Archived != nil {
		addArg("t.is_archived = $%d", *filter.Archived)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf(
			"(t.title ILIKE $%d OR t.description ILIKE $%d)", len(args), len(args)))
	}
	if filter.DueAfter != nil {
		addArg("t.due_end >= $%d", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		addArg("t.due_start <= $%d", *filter.DueBefore)
	}
	if filter.AssignedTo != "" {
		addArg(`EXISTS (SELECT 1 FROM task_assignees a
		        WHERE a.task_id = t.id AND a.user_id = $%d)`, filter.AssignedTo)
	}
	if filter.ParentTaskID != "" {
		addArg("t.parent_task_id = $%d", filter.ParentTaskID)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks t WHERE `+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	orderBy := sortColumn(filter.SortBy)
	direction := sortDirection(filter.SortOrder)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`SELECT %s FROM tasks t WHERE %s ORDER BY t.%s %s LIMIT $%d OFFSET $%d`,
		taskColumnsAliased("t"), whereClause, orderBy, direction, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0, limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// sortColumn whitelists sortable columns so user input never reaches
// the ORDER BY clause directly.
func sortColumn(requested string) string {
	switch strings.ToLower(strings.TrimSpace(requested)) {
	case "title":
		return "title"
	case "status":
		return "status"
	case "priority":
		return "priority"
	case "due_start":
		return "due_start"
	case "due_end":
		return "due_end"
	case "updated_at":
		return "updated_at"
	default:
		return "created_at"
	}
}

// sortDirection honors an explicit asc; everything else sorts newest
// first regardless of which column was picked.
func sortDirection(requested string) string {
	if strings.EqualFold(strings.TrimSpace(requested), "asc") {
		return "ASC"
	}
	return "DESC"
}

func taskColumnsAliased(alias string) string {
	cols := strings.Split(taskColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func (r *TaskRepository) Update(ctx context.Context, t model.Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, status = $4, priority = $5,
		        due_start = $6, due_end = $7, start_date = $8, end_date = $9,
		        estimated_hours = $10, is_archived = $11, updated_at = $12
		 WHERE id = $1 AND deleted_at IS NULL`,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.DueStart, t.DueEnd,
		t.StartDate, t.EndDate, t.EstimatedHours, t.IsArchived, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) SoftDelete(ctx context.Context, id string) error {
	if !isUUID(id) {
		return model.ErrTaskNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) ReplaceAssignees(ctx context.Context, taskID string, assignees []model.TaskAssignee) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin assignee update: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clear assignees: %w", err)
	}

	for _, a := range assignees {
		if _, err := tx.Exec(ctx,
			`INSERT INTO task_assignees (id, task_id, user_id) VALUES ($1, $2, $3)`,
			a.ID, taskID, a.UserID); err != nil {
			return fmt.Errorf("insert assignee: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *TaskRepository) ListAssignees(ctx context.Context, taskID string) ([]model.TaskAssignee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.task_id, a.user_id, u.username, u.firstname, u.lastname
		 FROM task_assignees a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.task_id = $1
		 ORDER BY u.username`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	defer rows.Close()

	assignees := make([]model.TaskAssignee, 0)
	for rows.Next() {
		var a model.TaskAssignee
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.Username, &a.Firstname, &a.Lastname); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		assignees = append(assignees, a)
	}
	return assignees, rows.Err()
}
