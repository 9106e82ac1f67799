package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository/repotest"
	"github.com/spec-kit/repair-service/internal/service"
)

func TestReportOverdue(t *testing.T) {
	store := repotest.NewStore()
	operator, master, _ := seedUsers(store)
	ticketSvc := newTestService(store)
	reportSvc := service.NewReportService(store.TicketsRepo(), store.IssueTypesRepo(), func() time.Time { return fixedNow })
	ctx := context.Background()

	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(time.Hour)

	overdueInput := createInput()
	overdueInput.DueAt = &past
	overdueTicket, err := ticketSvc.CreateTicket(ctx, &operator, overdueInput)
	require.NoError(t, err)

	onTimeInput := createInput()
	onTimeInput.DueAt = &future
	_, err = ticketSvc.CreateTicket(ctx, &operator, onTimeInput)
	require.NoError(t, err)

	// A ready ticket past its deadline is not overdue.
	lateButDone := createInput()
	lateButDone.DueAt = &past
	lateButDone.AssigneeUsername = "petrov"
	doneTicket, err := ticketSvc.CreateTicket(ctx, &operator, lateButDone)
	require.NoError(t, err)
	_, err = ticketSvc.ChangeStatus(ctx, &operator, doneTicket.RequestNumber, domain.TicketStatusReady)
	require.NoError(t, err)

	overdue, err := reportSvc.Overdue(ctx, &operator)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueTicket.RequestNumber, overdue[0].RequestNumber)

	// Masters only see their own overdue tickets.
	overdue, err = reportSvc.Overdue(ctx, &master)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueTicket.RequestNumber, overdue[0].RequestNumber)
}

func TestReportSummaryScopesMasters(t *testing.T) {
	store := repotest.NewStore()
	operator, master, _ := seedUsers(store)
	ticketSvc := newTestService(store)
	reportSvc := service.NewReportService(store.TicketsRepo(), store.IssueTypesRepo(), func() time.Time { return fixedNow })
	ctx := context.Background()

	_, err := ticketSvc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	foreign := createInput()
	foreign.AssigneeUsername = "petrov"
	foreign.ClientPhone = "79990001122"
	_, err = ticketSvc.CreateTicket(ctx, &operator, foreign)
	require.NoError(t, err)

	all, err := reportSvc.Summary(ctx, &operator)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)

	scoped, err := reportSvc.Summary(ctx, &master)
	require.NoError(t, err)
	assert.Equal(t, 1, scoped.Total)
}
