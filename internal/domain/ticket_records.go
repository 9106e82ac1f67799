package domain

import "time"

// TicketComment is a free-form note on a ticket.
type TicketComment struct {
	ID           int64
	TicketID     int64
	AuthorUserID int64
	Body         string
	CreatedAt    time.Time
}

// TicketPart records a spare part consumed during a repair.
type TicketPart struct {
	ID        int64
	TicketID  int64
	PartName  string
	Quantity  int
	CreatedAt time.Time
}

// TicketAssignee links a specialist to a ticket. Role is 'primary' for the
// responsible master.
type TicketAssignee struct {
	TicketID         int64
	UserID           int64
	Role             string
	AssignedByUserID int64
	AssignedAt       time.Time
}

// AssigneeRolePrimary marks the responsible specialist on a ticket.
const AssigneeRolePrimary = "primary"

// DeadlineExtension records a due-date move with its reason.
type DeadlineExtension struct {
	ID                int64
	TicketID          int64
	OldDueAt          *time.Time
	NewDueAt          time.Time
	Reason            string
	RequestedByUserID int64
	CreatedAt         time.Time
}
