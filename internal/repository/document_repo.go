package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskhub/internal/model"
)

type DocumentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d model.Document) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, task_id, uploader_id, name, mime_type, size, storage_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.TaskID, d.UploaderID, d.Name, d.MimeType, d.Size, d.StorageKey, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) FindByID(ctx context.Context, id string) (model.Document, error) {
	if !isUUID(id) {
		return model.Document{}, model.ErrDocumentNotFound
	}
	var d model.Document
	err := r.pool.QueryRow(ctx,
		`SELECT id, task_id, uploader_id, name, mime_type, size, storage_key, created_at
		 FROM documents WHERE id = $1`, id).
		Scan(&d.ID, &d.TaskID, &d.UploaderID, &d.Name, &d.MimeType, &d.Size,
			&d.StorageKey, &d.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Document{}, model.ErrDocumentNotFound
	}
	if err != nil {
		return model.Document{}, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepository) ListForTask(ctx context.Context, taskID string) ([]model.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, task_id, uploader_id, name, mime_type, size, storage_key, created_at
		 FROM documents WHERE task_id = $1 ORDER BY created_at DESC`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	documents := make([]model.Document, 0)
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.TaskID, &d.UploaderID, &d.Name, &d.MimeType,
			&d.Size, &d.StorageKey, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrDocumentNotFound
	}
	return nil
}
