package model

import "time"

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	default:
		return false
	}
}

func ValidTaskPriority(priority string) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	default:
		return false
	}
}

type Task struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueStart       time.Time  `json:"due_start"`
	DueEnd         time.Time  `json:"due_end"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	ParentTaskID   *string    `json:"parent_task_id,omitempty"`
	IsArchived     bool       `json:"is_archived"`
	CreatedByID    string     `json:"created_by_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"-"`

	Assignees []TaskAssignee `json:"assignees,omitempty"`
}

type TaskAssignee struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
}

// TaskFilter restricts task listings. Zero values mean "no filter".
type TaskFilter struct {
	ProjectID    string
	Status       string
	Priority     string
	Search       string
	Archived     *bool
	DueAfter     *time.Time
	DueBefore    *time.Time
	AssignedTo   string
	ParentTaskID string
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
}
