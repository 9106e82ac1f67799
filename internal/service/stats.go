package service

import (
	"sort"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// IssueTypeCount is one row of the per-type breakdown.
type IssueTypeCount struct {
	IssueType string
	Count     int
}

// Summary is the aggregate report over a set of tickets.
type Summary struct {
	Total             int
	Completed         int
	AverageRepairTime *time.Duration
	ByIssueType       []IssueTypeCount
}

// AverageRepairHours converts the average to hours for reporting.
func (s Summary) AverageRepairHours() *float64 {
	if s.AverageRepairTime == nil {
		return nil
	}
	hours := s.AverageRepairTime.Hours()
	return &hours
}

// AverageRepairTime computes the mean of completed_at − coalesce(started_at,
// created_at) over the given tickets. Tickets without a completion timestamp
// or with inconsistent timestamps are excluded. Returns nil when nothing
// qualifies.
func AverageRepairTime(tickets []domain.Ticket) *time.Duration {
	var total time.Duration
	var count int
	for i := range tickets {
		d := tickets[i].RepairDuration()
		if d == nil {
			continue
		}
		total += *d
		count++
	}
	if count == 0 {
		return nil
	}
	avg := total / time.Duration(count)
	return &avg
}

// BuildSummary aggregates totals, completed count, average repair time over
// completed tickets and a per-issue-type breakdown. issueTypeNames maps
// issue type id to name; tickets without a classification count under
// "unspecified".
func BuildSummary(tickets []domain.Ticket, issueTypeNames map[int64]string) Summary {
	var completed []domain.Ticket
	counts := map[string]int{}
	for i := range tickets {
		t := &tickets[i]
		if t.Status == domain.TicketStatusReady {
			completed = append(completed, *t)
		}
		name := "unspecified"
		if t.IssueTypeID != nil {
			if n, ok := issueTypeNames[*t.IssueTypeID]; ok {
				name = n
			}
		}
		counts[name]++
	}

	byType := make([]IssueTypeCount, 0, len(counts))
	for name, count := range counts {
		byType = append(byType, IssueTypeCount{IssueType: name, Count: count})
	}
	sort.Slice(byType, func(i, j int) bool {
		if byType[i].Count != byType[j].Count {
			return byType[i].Count > byType[j].Count
		}
		return byType[i].IssueType < byType[j].IssueType
	})

	return Summary{
		Total:             len(tickets),
		Completed:         len(completed),
		AverageRepairTime: AverageRepairTime(completed),
		ByIssueType:       byType,
	}
}
