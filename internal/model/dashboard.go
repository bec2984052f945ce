package model

import "time"

type DashboardOverview struct {
	TotalProjects   int `json:"total_projects"`
	ActiveProjects  int `json:"active_projects"`
	TotalTasks      int `json:"total_tasks"`
	OpenTasks       int `json:"open_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	OverdueTasks    int `json:"overdue_tasks"`
	UnreadNotices   int `json:"unread_notifications"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

type DashboardCharts struct {
	TasksByStatus   []StatusCount   `json:"tasks_by_status"`
	TasksByPriority []PriorityCount `json:"tasks_by_priority"`
}

type CalendarTask struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	DueStart  time.Time `json:"due_start"`
	DueEnd    time.Time `json:"due_end"`
}

type MemberWorkload struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	OpenTasks int    `json:"open_tasks"`
	DoneTasks int    `json:"done_tasks"`
}
