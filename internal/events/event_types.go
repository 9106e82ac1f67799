package events

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventDeadlineExtended    EventType = "ticket_deadline_extended"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	TicketID      int64       `json:"ticket_id"`
	RequestNumber int64       `json:"request_number"`
	ActorUserID   int64       `json:"actor_user_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Status     domain.TicketStatus `json:"status"`
	AssigneeID *int64              `json:"assignee_id,omitempty"`
	ClientID   int64               `json:"client_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
	AssigneeID *int64              `json:"assignee_id,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID int64 `json:"assignee_id"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
	AssigneeID  *int64 `json:"assignee_id,omitempty"`
}

// DeadlineExtendedPayload payload.
type DeadlineExtendedPayload struct {
	OldDueAt   *time.Time `json:"old_due_at,omitempty"`
	NewDueAt   time.Time  `json:"new_due_at"`
	Reason     string     `json:"reason,omitempty"`
	AssigneeID *int64     `json:"assignee_id,omitempty"`
}
