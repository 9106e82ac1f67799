package service

import (
	"context"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

// ReportService serves the fixed set of management reports. Every report is
// a stateless read; nothing here is cached.
type ReportService struct {
	tickets    repository.TicketRepository
	issueTypes repository.IssueTypeRepository
	now        func() time.Time
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, issueTypes repository.IssueTypeRepository, now func() time.Time) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{tickets: tickets, issueTypes: issueTypes, now: now}
}

// Summary aggregates totals, completed count, average repair time and the
// per-issue-type breakdown. Masters see only their own tickets.
func (s *ReportService) Summary(ctx context.Context, actor *domain.User) (Summary, error) {
	filter := repository.TicketFilter{Limit: 10000}
	if actor.Role == domain.RoleMaster {
		filter.AssigneeID = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return Summary{}, err
	}

	issueTypes, err := s.issueTypes.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	names := make(map[int64]string, len(issueTypes))
	for _, it := range issueTypes {
		names[it.ID] = it.Name
	}

	return BuildSummary(tickets, names), nil
}

// Overdue returns exactly the tickets with status != ready and due_at in the
// past. Masters see only their own tickets.
func (s *ReportService) Overdue(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	var assigneeID *int64
	if actor.Role == domain.RoleMaster {
		assigneeID = &actor.ID
	}
	return s.tickets.ListOverdue(ctx, s.now(), assigneeID)
}
