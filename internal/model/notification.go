package model

import "time"

const (
	NotificationTaskAssigned   = "TASK_ASSIGNED"
	NotificationTaskUpdated    = "TASK_UPDATED"
	NotificationCommentAdded   = "COMMENT_ADDED"
	NotificationProjectInvited = "PROJECT_INVITED"
)

type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
