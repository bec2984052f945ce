package model

import "time"

type ActivityActor struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

type ActivityEntry struct {
	ID         int64         `json:"id,omitempty"`
	Action     string        `json:"action"`
	OccurredAt time.Time     `json:"occurred_at"`
	Actor      ActivityActor `json:"actor"`
	Status     string        `json:"status"`
	Resource   string        `json:"resource,omitempty"`
	Before     any           `json:"before,omitempty"`
	After      any           `json:"after,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type ActivityQuery struct {
	Action   string
	ActorID  string
	Resource string
	Since    *time.Time
	Until    *time.Time
	Page     int
	Limit    int
}
