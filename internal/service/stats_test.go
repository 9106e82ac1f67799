package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
)

func ts(offset time.Duration) *time.Time {
	t := fixedNow.Add(offset)
	return &t
}

func TestAverageRepairTime(t *testing.T) {
	tickets := []domain.Ticket{
		{
			Status:      domain.TicketStatusReady,
			CreatedAt:   fixedNow.Add(-10 * time.Hour),
			StartedAt:   ts(-2 * time.Hour),
			CompletedAt: ts(0),
		},
		{
			Status:      domain.TicketStatusReady,
			CreatedAt:   fixedNow.Add(-10 * time.Hour),
			StartedAt:   ts(-4 * time.Hour),
			CompletedAt: ts(0),
		},
	}

	avg := service.AverageRepairTime(tickets)
	require.NotNil(t, avg)
	assert.Equal(t, 3*time.Hour, *avg)
}

func TestAverageRepairTimeFallsBackToCreatedAt(t *testing.T) {
	// Completed without ever entering in_progress: the clock starts at creation.
	tickets := []domain.Ticket{
		{
			Status:      domain.TicketStatusReady,
			CreatedAt:   fixedNow.Add(-6 * time.Hour),
			CompletedAt: ts(0),
		},
	}

	avg := service.AverageRepairTime(tickets)
	require.NotNil(t, avg)
	assert.Equal(t, 6*time.Hour, *avg)
}

func TestAverageRepairTimeSkipsUnfinished(t *testing.T) {
	tickets := []domain.Ticket{
		{Status: domain.TicketStatusInProgress, CreatedAt: fixedNow, StartedAt: ts(0)},
		{Status: domain.TicketStatusNew, CreatedAt: fixedNow},
	}
	assert.Nil(t, service.AverageRepairTime(tickets))
}

func TestBuildSummary(t *testing.T) {
	heating := int64(1)
	leak := int64(2)

	tickets := []domain.Ticket{
		{Status: domain.TicketStatusReady, IssueTypeID: &heating, CreatedAt: fixedNow.Add(-2 * time.Hour), CompletedAt: ts(0)},
		{Status: domain.TicketStatusNew, IssueTypeID: &heating},
		{Status: domain.TicketStatusInProgress, IssueTypeID: &leak},
		{Status: domain.TicketStatusAwaitingParts},
	}
	names := map[int64]string{heating: "No heating", leak: "Water leak"}

	summary := service.BuildSummary(tickets, names)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Completed)
	require.NotNil(t, summary.AverageRepairTime)
	assert.Equal(t, 2*time.Hour, *summary.AverageRepairTime)

	require.Len(t, summary.ByIssueType, 3)
	assert.Equal(t, service.IssueTypeCount{IssueType: "No heating", Count: 2}, summary.ByIssueType[0])
	// Single-count buckets tie, ordered by name.
	assert.Equal(t, service.IssueTypeCount{IssueType: "Water leak", Count: 1}, summary.ByIssueType[1])
	assert.Equal(t, service.IssueTypeCount{IssueType: "unspecified", Count: 1}, summary.ByIssueType[2])
}

func TestBuildSummaryEmpty(t *testing.T) {
	summary := service.BuildSummary(nil, nil)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Completed)
	assert.Nil(t, summary.AverageRepairTime)
	assert.Empty(t, summary.ByIssueType)
	assert.Nil(t, summary.AverageRepairHours())
}
