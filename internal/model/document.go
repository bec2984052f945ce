package model

import "time"

type Document struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	UploaderID string    `json:"uploader_id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
