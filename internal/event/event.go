package event

type Type string

const (
	TypeUserRegistered      Type = "user.registered"
	TypeProjectCreated      Type = "project.created"
	TypeProjectArchived     Type = "project.archived"
	TypeMemberAdded         Type = "project.member_added"
	TypeTaskCreated         Type = "task.created"
	TypeTaskUpdated         Type = "task.updated"
	TypeTaskAssigned        Type = "task.assigned"
	TypeTaskDeleted         Type = "task.deleted"
	TypeCommentCreated      Type = "comment.created"
	TypeDocumentUploaded    Type = "document.uploaded"
	TypeNotificationCreated Type = "notification.created"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
