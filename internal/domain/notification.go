package domain

import "time"

// Notification is a per-user inbox entry produced by ticket events.
// TicketID becomes nil when the referenced ticket is deleted.
type Notification struct {
	ID        int64
	UserID    int64
	TicketID  *int64
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
