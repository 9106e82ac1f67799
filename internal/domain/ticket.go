package domain

import "time"

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusNew           TicketStatus = "new"
	TicketStatusInProgress    TicketStatus = "in_progress"
	TicketStatusAwaitingParts TicketStatus = "awaiting_parts"
	TicketStatusReady         TicketStatus = "ready"
)

// ValidStatus reports whether the value is one of the enumerated statuses.
// There is no transition graph: any status may move to any other, only the
// value set is enforced.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusAwaitingParts, TicketStatusReady:
		return true
	}
	return false
}

// AllStatuses lists the enumerated statuses in lifecycle order.
func AllStatuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusNew,
		TicketStatusInProgress,
		TicketStatusAwaitingParts,
		TicketStatusReady,
	}
}

// Ticket is the aggregate for a repair request.
type Ticket struct {
	ID                   int64
	RequestNumber        int64
	Status               TicketStatus
	ClientID             int64
	ApplianceID          int64
	IssueTypeID          *int64
	ProblemDescription   string
	AssignedSpecialistID *int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DueAt                *time.Time
	StartedAt            *time.Time
	CompletedAt          *time.Time
}

// RepairDuration returns the elapsed repair time, or nil when the ticket has
// no completion timestamp yet or the timestamps are inconsistent. The repair
// clock starts at started_at, falling back to created_at for tickets that
// were completed without ever entering in_progress.
func (t *Ticket) RepairDuration() *time.Duration {
	if t.CompletedAt == nil {
		return nil
	}
	start := t.CreatedAt
	if t.StartedAt != nil {
		start = *t.StartedAt
	}
	if t.CompletedAt.Before(start) {
		return nil
	}
	d := t.CompletedAt.Sub(start)
	return &d
}

// Overdue reports whether the ticket missed its deadline: not ready and past due.
func (t *Ticket) Overdue(now time.Time) bool {
	return t.Status != TicketStatusReady && t.DueAt != nil && t.DueAt.Before(now)
}
