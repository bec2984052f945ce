package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskhub/internal/model"
)

type ActivityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) Log(ctx context.Context, entry model.ActivityEntry) error {
	var beforeJSON, afterJSON []byte
	var err error

	if entry.Before != nil {
		beforeJSON, err = json.Marshal(entry.Before)
		if err != nil {
			return fmt.Errorf("marshal before data: %w", err)
		}
	}
	if entry.After != nil {
		afterJSON, err = json.Marshal(entry.After)
		if err != nil {
			return fmt.Errorf("marshal after data: %w", err)
		}
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO activity_entries
		 (action, occurred_at, actor_user_id, actor_username, actor_role, actor_ip,
		  status, resource, before_data, after_data, error_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.Action, entry.OccurredAt,
		entry.Actor.UserID, entry.Actor.Username, entry.Actor.Role, entry.Actor.IP,
		entry.Status, entry.Resource, beforeJSON, afterJSON, entry.Error)
	if err != nil {
		return fmt.Errorf("log activity entry: %w", err)
	}
	return nil
}

func (r *ActivityRepository) Query(ctx context.Context, query model.ActivityQuery) ([]model.ActivityEntry, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := make([]string, 0)
	args := make([]any, 0)

	if action := strings.TrimSpace(query.Action); action != "" {
		args = append(args, action)
		where = append(where, fmt.Sprintf("lower(action) = lower($%d)", len(args)))
	}
	if actorID := strings.TrimSpace(query.ActorID); actorID != "" {
		args = append(args, actorID)
		where = append(where, fmt.Sprintf("actor_user_id = $%d", len(args)))
	}
	if resource := strings.TrimSpace(query.Resource); resource != "" {
		args = append(args, "%"+resource+"%")
		where = append(where, fmt.Sprintf("lower(resource) LIKE lower($%d)", len(args)))
	}
	if query.Since != nil {
		args = append(args, *query.Since)
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if query.Until != nil {
		args = append(args, *query.Until)
		where = append(where, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM activity_entries %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count activity entries: %w", err)
	}

	meta := *model.NewMeta(query.Page, query.Limit, total)

	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	dataQuery := fmt.Sprintf(
		`SELECT id, action, occurred_at, actor_user_id, actor_username, actor_role, actor_ip,
		        status, resource, before_data, after_data, error_text
		 FROM activity_entries %s
		 ORDER BY occurred_at DESC
		 LIMIT $%d OFFSET $%d`, whereClause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query activity entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.ActivityEntry, 0)
	for rows.Next() {
		var e model.ActivityEntry
		var beforeJSON, afterJSON []byte
		var actorID, actorUsername, actorRole, actorIP, resource, errorText *string

		if err := rows.Scan(&e.ID, &e.Action, &e.OccurredAt,
			&actorID, &actorUsername, &actorRole, &actorIP,
			&e.Status, &resource, &beforeJSON, &afterJSON, &errorText); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan activity entry: %w", err)
		}

		e.Actor = model.ActivityActor{
			UserID:   deref(actorID),
			Username: deref(actorUsername),
			Role:     deref(actorRole),
			IP:       deref(actorIP),
		}
		e.Resource = deref(resource)
		e.Error = deref(errorText)

		if len(beforeJSON) > 0 {
			var before any
			if jsonErr := json.Unmarshal(beforeJSON, &before); jsonErr == nil {
				e.Before = before
			}
		}
		if len(afterJSON) > 0 {
			var after any
			if jsonErr := json.Unmarshal(afterJSON, &after); jsonErr == nil {
				e.After = after
			}
		}

		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
