package domain

import "time"

// StatusChange is an immutable audit entry for one ticket status transition.
// OldStatus is nil for the row written at ticket creation.
type StatusChange struct {
	ID              int64
	TicketID        int64
	OldStatus       *TicketStatus
	NewStatus       TicketStatus
	ChangedByUserID int64
	ChangedAt       time.Time
}
