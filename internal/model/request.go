package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TwoFactorRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Role      string `json:"role"`
}

type UpdateProfileRequest struct {
	Email     *string `json:"email"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Password  *string `json:"password"`
}

type TwoFactorToggleRequest struct {
	Enabled bool `json:"enabled"`
}

type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	DueStart    string  `json:"due_start"`
	DueEnd      *string `json:"due_end"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueStart    *string `json:"due_start"`
	DueEnd      *string `json:"due_end"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type CreateTaskRequest struct {
	ProjectID      string   `json:"project_id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	DueStart       string   `json:"due_start"`
	DueEnd         string   `json:"due_end"`
	StartDate      *string  `json:"start_date"`
	EndDate        *string  `json:"end_date"`
	EstimatedHours *float64 `json:"estimated_hours"`
	ParentTaskID   *string  `json:"parent_task_id"`
	AssigneeIDs    []string `json:"assignee_ids"`
}

type UpdateTaskRequest struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Status         *string   `json:"status"`
	Priority       *string   `json:"priority"`
	DueStart       *string   `json:"due_start"`
	DueEnd         *string   `json:"due_end"`
	StartDate      *string   `json:"start_date"`
	EndDate        *string   `json:"end_date"`
	EstimatedHours *float64  `json:"estimated_hours"`
	IsArchived     *bool     `json:"is_archived"`
	AssigneeIDs    *[]string `json:"assignee_ids"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}
