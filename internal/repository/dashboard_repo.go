package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskhub/internal/model"
)

// DashboardRepository runs the aggregation queries backing the
// dashboard views. Everything is scoped to projects the user belongs to.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

const memberScope = `EXISTS (SELECT 1 FROM project_members m
	WHERE m.project_id = t.project_id AND m.user_id = $1 AND m.is_active)`

func (r *DashboardRepository) Overview(ctx context.Context, userID string) (model.DashboardOverview, error) {
	var o model.DashboardOverview

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT p.is_archived)
		 FROM projects p
		 WHERE EXISTS (SELECT 1 FROM project_members m
		               WHERE m.project_id = p.id AND m.user_id = $1 AND m.is_active)`,
		userID).Scan(&o.TotalProjects, &o.ActiveProjects)
	if err != nil {
		return model.DashboardOverview{}, fmt.Errorf("count projects: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE t.status <> 'done'),
		        COUNT(*) FILTER (WHERE t.status = 'done'),
		        COUNT(*) FILTER (WHERE t.status <> 'done' AND t.due_end < now())
		 FROM tasks t
		 WHERE t.deleted_at IS NULL AND NOT t.is_archived AND `+memberScope,
		userID).Scan(&o.TotalTasks, &o.OpenTasks, &o.CompletedTasks, &o.OverdueTasks)
	if err != nil {
		return model.DashboardOverview{}, fmt.Errorf("count tasks: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`,
		userID).Scan(&o.UnreadNotices)
	if err != nil {
		return model.DashboardOverview{}, fmt.Errorf("count unread notifications: %w", err)
	}

	return o, nil
}

func (r *DashboardRepository) TasksByStatus(ctx context.Context, userID string) ([]model.StatusCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.status, COUNT(*)
		 FROM tasks t
		 WHERE t.deleted_at IS NULL AND NOT t.is_archived AND `+memberScope+`
		 GROUP BY t.status
		 ORDER BY t.status`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("tasks by status: %w", err)
	}
	defer rows.Close()

	counts := make([]model.StatusCount, 0)
	for rows.Next() {
		var c model.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *DashboardRepository) TasksByPriority(ctx context.Context, userID string) ([]model.PriorityCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.priority, COUNT(*)
		 FROM tasks t
		 WHERE t.deleted_at IS NULL AND NOT t.is_archived AND `+memberScope+`
		 GROUP BY t.priority
		 ORDER BY t.priority`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("tasks by priority: %w", err)
	}
	defer rows.Close()

	counts := make([]model.PriorityCount, 0)
	for rows.Next() {
		var c model.PriorityCount
		if err := rows.Scan(&c.Priority, &c.Count); err != nil {
			return nil, fmt.Errorf("scan priority count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CalendarTasks returns tasks whose due window overlaps [from, until].
func (r *DashboardRepository) CalendarTasks(ctx context.Context, userID string, from time.Time, until time.Time) ([]model.CalendarTask, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.project_id, t.title, t.status, t.priority, t.due_start, t.due_end
		 FROM tasks t
		 WHERE t.deleted_at IS NULL AND NOT t.is_archived
		   AND t.due_start <= $3 AND t.due_end >= $2
		   AND `+memberScope+`
		 ORDER BY t.due_start`,
		userID, from, until)
	if err != nil {
		return nil, fmt.Errorf("calendar tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.CalendarTask, 0)
	for rows.Next() {
		var t model.CalendarTask
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority,
			&t.DueStart, &t.DueEnd); err != nil {
			return nil, fmt.Errorf("scan calendar task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Workload aggregates open/done task counts per member across the
// calling user's projects.
func (r *DashboardRepository) Workload(ctx context.Context, userID string) ([]model.MemberWorkload, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, u.firstname, u.lastname,
		        COUNT(*) FILTER (WHERE t.status <> 'done'),
		        COUNT(*) FILTER (WHERE t.status = 'done')
		 FROM task_assignees a
		 JOIN tasks t ON t.id = a.task_id
		 JOIN users u ON u.id = a.user_id
		 WHERE t.deleted_at IS NULL AND NOT t.is_archived AND `+memberScope+`
		 GROUP BY u.id, u.username, u.firstname, u.lastname
		 ORDER BY u.username`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("member workload: %w", err)
	}
	defer rows.Close()

	workloads := make([]model.MemberWorkload, 0)
	for rows.Next() {
		var w model.MemberWorkload
		if err := rows.Scan(&w.UserID, &w.Username, &w.Firstname, &w.Lastname,
			&w.OpenTasks, &w.DoneTasks); err != nil {
			return nil, fmt.Errorf("scan workload: %w", err)
		}
		workloads = append(workloads, w)
	}
	return workloads, rows.Err()
}
