package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// CreateTicketRequest is the payload for POST /tickets.
type CreateTicketRequest struct {
	ApplianceType      string              `json:"appliance_type"`
	ApplianceModel     string              `json:"appliance_model"`
	IssueType          string              `json:"issue_type,omitempty"`
	ProblemDescription string              `json:"problem_description"`
	ClientName         string              `json:"client_name"`
	ClientPhone        string              `json:"client_phone"`
	AssigneeUsername   string              `json:"assignee_username,omitempty"`
	Status             domain.TicketStatus `json:"status,omitempty"`
	DueAt              *time.Time          `json:"due_at,omitempty"`
}

// UpdateTicketRequest is the payload for PUT /tickets/:number.
type UpdateTicketRequest struct {
	ApplianceType      string              `json:"appliance_type"`
	ApplianceModel     string              `json:"appliance_model"`
	IssueType          string              `json:"issue_type,omitempty"`
	ProblemDescription string              `json:"problem_description"`
	ClientName         string              `json:"client_name"`
	ClientPhone        string              `json:"client_phone"`
	AssigneeUsername   string              `json:"assignee_username,omitempty"`
	Status             domain.TicketStatus `json:"status,omitempty"`
	DueAt              *time.Time          `json:"due_at,omitempty"`
}

// ChangeStatusRequest is the payload for POST /tickets/:number/status.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// AssignRequest is the payload for POST /tickets/:number/assignee.
type AssignRequest struct {
	Username string `json:"username"`
}

// CreateCommentRequest is the payload for POST /tickets/:number/comments.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CreatePartRequest is the payload for POST /tickets/:number/parts.
type CreatePartRequest struct {
	PartName string `json:"part_name"`
	Quantity int    `json:"quantity"`
}

// ExtendDeadlineRequest is the payload for POST /tickets/:number/extensions.
type ExtendDeadlineRequest struct {
	NewDueAt time.Time `json:"new_due_at"`
	Reason   string    `json:"reason,omitempty"`
}

// TicketSummary is the listing shape of a ticket.
type TicketSummary struct {
	ID                   int64               `json:"id"`
	RequestNumber        int64               `json:"request_number"`
	Status               domain.TicketStatus `json:"status"`
	ClientID             int64               `json:"client_id"`
	ApplianceID          int64               `json:"appliance_id"`
	IssueTypeID          *int64              `json:"issue_type_id,omitempty"`
	ProblemDescription   string              `json:"problem_description"`
	AssignedSpecialistID *int64              `json:"assigned_specialist_id,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	DueAt                *time.Time          `json:"due_at,omitempty"`
	StartedAt            *time.Time          `json:"started_at,omitempty"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
}

// ClientResponse describes a client.
type ClientResponse struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// ApplianceResponse describes an appliance.
type ApplianceResponse struct {
	ID             int64  `json:"id"`
	ApplianceType  string `json:"appliance_type"`
	ApplianceModel string `json:"appliance_model"`
}

// StatusChangeResponse is one audit entry.
type StatusChangeResponse struct {
	ID              int64                `json:"id"`
	OldStatus       *domain.TicketStatus `json:"old_status,omitempty"`
	NewStatus       domain.TicketStatus  `json:"new_status"`
	ChangedByUserID int64                `json:"changed_by_user_id"`
	ChangedAt       time.Time            `json:"changed_at"`
}

// CommentResponse is one ticket comment.
type CommentResponse struct {
	ID           int64     `json:"id"`
	AuthorUserID int64     `json:"author_user_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// PartResponse is one recorded spare part.
type PartResponse struct {
	ID        int64     `json:"id"`
	PartName  string    `json:"part_name"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtensionResponse is one deadline extension.
type ExtensionResponse struct {
	ID                int64      `json:"id"`
	OldDueAt          *time.Time `json:"old_due_at,omitempty"`
	NewDueAt          time.Time  `json:"new_due_at"`
	Reason            string     `json:"reason,omitempty"`
	RequestedByUserID int64      `json:"requested_by_user_id"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TicketDetailResponse is the full ticket view.
type TicketDetailResponse struct {
	TicketSummary
	Client     ClientResponse         `json:"client"`
	Appliance  ApplianceResponse      `json:"appliance"`
	History    []StatusChangeResponse `json:"history"`
	Comments   []CommentResponse      `json:"comments"`
	Parts      []PartResponse         `json:"parts"`
	Extensions []ExtensionResponse    `json:"extensions"`
}
