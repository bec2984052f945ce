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

type CommentRepository struct {
	pool *pgxpool.Pool
}

func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

func (r *CommentRepository) Create(ctx context.Context, c model.Comment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO comments (id, task_id, author_id, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TaskID, c.AuthorID, c.Content, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (model.Comment, error) {
	if !isUUID(id) {
		return model.Comment{}, model.ErrCommentNotFound
	}
	var c model.Comment
	err := r.pool.QueryRow(ctx,
		`SELECT id, task_id, author_id, content, created_at, updated_at
		 FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Comment{}, model.ErrCommentNotFound
	}
	if err != nil {
		return model.Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

func (r *CommentRepository) ListForTask(ctx context.Context, taskID string) ([]model.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.task_id, c.author_id, c.content, c.created_at, c.updated_at,
		        u.username, u.firstname, u.lastname
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.task_id = $1
		 ORDER BY c.created_at`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt,
			&c.UpdatedAt, &c.AuthorUsername, &c.AuthorFirstname, &c.AuthorLastname); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepository) Update(ctx context.Context, id string, content string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE comments SET content = $2, updated_at = $3 WHERE id = $1`,
		id, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}
