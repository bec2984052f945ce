package model

import "time"

type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AuthorUsername  string `json:"author_username,omitempty"`
	AuthorFirstname string `json:"author_firstname,omitempty"`
	AuthorLastname  string `json:"author_lastname,omitempty"`
}
