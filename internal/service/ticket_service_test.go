package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/repository/repotest"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(store *repotest.Store) *service.TicketService {
	return service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.TicketsRepo(),
		ClientRepo:    store.ClientsRepo(),
		ApplianceRepo: store.AppliancesRepo(),
		IssueTypeRepo: store.IssueTypesRepo(),
		UserRepo:      store.Users(),
		HistoryRepo:   store.HistoryRepo(),
		CommentRepo:   store.CommentsRepo(),
		PartRepo:      store.PartsRepo(),
		AssigneeRepo:  store.AssigneesRepo(),
		ExtensionRepo: store.ExtensionsRepo(),
		Now:           func() time.Time { return fixedNow },
	})
}

func seedUsers(store *repotest.Store) (operator, master, otherMaster domain.User) {
	operator = store.AddUser(domain.User{Username: "operator", Role: domain.RoleOperator, IsActive: true})
	master = store.AddUser(domain.User{Username: "ivanov", Role: domain.RoleMaster, IsActive: true})
	otherMaster = store.AddUser(domain.User{Username: "petrov", Role: domain.RoleMaster, IsActive: true})
	return operator, master, otherMaster
}

func createInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		ApplianceType:      "washing machine",
		ApplianceModel:     "LG F2J3",
		IssueType:          "Does not turn on",
		ProblemDescription: "no power after surge",
		ClientName:         "Anna Smirnova",
		ClientPhone:        "+7 (912) 345-67-89",
		AssigneeUsername:   "ivanov",
	}
}

func TestCreateTicket(t *testing.T) {
	store := repotest.NewStore()
	operator, master, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	ticket, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	assert.Equal(t, int64(1), ticket.RequestNumber)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	require.NotNil(t, ticket.AssignedSpecialistID)
	assert.Equal(t, master.ID, *ticket.AssignedSpecialistID)
	require.NotNil(t, ticket.DueAt)
	assert.Nil(t, ticket.StartedAt)
	assert.Nil(t, ticket.CompletedAt)

	history := store.History()
	require.Len(t, history, 1)
	assert.Nil(t, history[0].OldStatus)
	assert.Equal(t, domain.TicketStatusNew, history[0].NewStatus)
	assert.Equal(t, operator.ID, history[0].ChangedByUserID)

	clients := store.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, "79123456789", clients[0].Phone)

	assignees := store.Assignees()
	require.Len(t, assignees, 1)
	assert.Equal(t, domain.AssigneeRolePrimary, assignees[0].Role)
}

func TestCreateTicketRequestNumbersIncrement(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		ticket, err := svc.CreateTicket(ctx, &operator, createInput())
		require.NoError(t, err)
		assert.False(t, seen[ticket.RequestNumber], "request number repeated")
		seen[ticket.RequestNumber] = true
		assert.Equal(t, int64(i+1), ticket.RequestNumber)
	}
}

func TestCreateTicketReusesClientByPhone(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	second := createInput()
	second.ClientName = "Anna P. Smirnova"
	second.ClientPhone = "79123456789"
	_, err = svc.CreateTicket(ctx, &operator, second)
	require.NoError(t, err)

	clients := store.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, "Anna P. Smirnova", clients[0].FullName)
}

func TestCreateTicketForbiddenForMaster(t *testing.T) {
	store := repotest.NewStore()
	_, master, _ := seedUsers(store)
	svc := newTestService(store)

	_, err := svc.CreateTicket(context.Background(), &master, createInput())
	requireDomainError(t, err, apperrors.CodeForbidden)
}

func TestCreateTicketValidation(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	missing := createInput()
	missing.ProblemDescription = "  "
	_, err := svc.CreateTicket(ctx, &operator, missing)
	requireDomainError(t, err, apperrors.CodeValidation)

	badPhone := createInput()
	badPhone.ClientPhone = "12345"
	_, err = svc.CreateTicket(ctx, &operator, badPhone)
	requireDomainError(t, err, apperrors.CodeValidation)

	badAssignee := createInput()
	badAssignee.AssigneeUsername = "operator"
	_, err = svc.CreateTicket(ctx, &operator, badAssignee)
	requireDomainError(t, err, apperrors.CodeValidation)
}

func TestChangeStatusTimestamps(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)
	number := created.RequestNumber

	ticket, err := svc.ChangeStatus(ctx, &operator, number, domain.TicketStatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, ticket.StartedAt)
	assert.Equal(t, fixedNow, *ticket.StartedAt)
	assert.Nil(t, ticket.CompletedAt)

	ticket, err = svc.ChangeStatus(ctx, &operator, number, domain.TicketStatusReady)
	require.NoError(t, err)
	require.NotNil(t, ticket.CompletedAt)
	assert.Equal(t, fixedNow, *ticket.CompletedAt)

	// Leaving ready clears the completion timestamp but keeps started_at.
	ticket, err = svc.ChangeStatus(ctx, &operator, number, domain.TicketStatusAwaitingParts)
	require.NoError(t, err)
	assert.Nil(t, ticket.CompletedAt)
	require.NotNil(t, ticket.StartedAt)
	assert.Equal(t, fixedNow, *ticket.StartedAt)
}

func TestChangeStatusAppendsExactlyOneHistoryRow(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, &operator, created.RequestNumber, domain.TicketStatusInProgress)
	require.NoError(t, err)

	history := store.History()
	require.Len(t, history, 2)
	require.NotNil(t, history[1].OldStatus)
	assert.Equal(t, domain.TicketStatusNew, *history[1].OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, history[1].NewStatus)
}

func TestChangeStatusSameStatusIsNoOp(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, &operator, created.RequestNumber, domain.TicketStatusNew)
	require.NoError(t, err)
	assert.Len(t, store.History(), 1)
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)

	_, err := svc.ChangeStatus(context.Background(), &operator, 1, domain.TicketStatus("repaired"))
	requireDomainError(t, err, apperrors.CodeValidation)
}

func TestMasterScoping(t *testing.T) {
	store := repotest.NewStore()
	operator, master, otherMaster := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	mine, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	foreign := createInput()
	foreign.AssigneeUsername = "petrov"
	foreign.ClientPhone = "79990001122"
	theirs, err := svc.CreateTicket(ctx, &operator, foreign)
	require.NoError(t, err)

	_, err = svc.GetTicket(ctx, &master, mine.RequestNumber)
	require.NoError(t, err)

	_, err = svc.GetTicket(ctx, &master, theirs.RequestNumber)
	requireDomainError(t, err, apperrors.CodeForbidden)

	listed, err := svc.ListTickets(ctx, &master, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.RequestNumber, listed[0].RequestNumber)

	listed, err = svc.ListTickets(ctx, &otherMaster, repository.TicketFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, theirs.RequestNumber, listed[0].RequestNumber)
}

func TestAssignSpecialist(t *testing.T) {
	store := repotest.NewStore()
	operator, _, otherMaster := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	ticket, err := svc.AssignSpecialist(ctx, &operator, created.RequestNumber, "petrov")
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignedSpecialistID)
	assert.Equal(t, otherMaster.ID, *ticket.AssignedSpecialistID)
}

func TestAddPart(t *testing.T) {
	store := repotest.NewStore()
	operator, master, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	_, err = svc.AddPart(ctx, &operator, created.RequestNumber, "drain pump", 1)
	requireDomainError(t, err, apperrors.CodeForbidden)

	_, err = svc.AddPart(ctx, &master, created.RequestNumber, "drain pump", 0)
	requireDomainError(t, err, apperrors.CodeValidation)

	part, err := svc.AddPart(ctx, &master, created.RequestNumber, "drain pump", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, part.Quantity)

	require.NoError(t, svc.RemovePart(ctx, &master, created.RequestNumber, part.ID))
	err = svc.RemovePart(ctx, &master, created.RequestNumber, part.ID)
	requireDomainError(t, err, apperrors.CodeNotFound)
}

func TestExtendDeadline(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)
	require.NotNil(t, created.DueAt)
	originalDue := *created.DueAt

	_, err = svc.ExtendDeadline(ctx, &operator, created.RequestNumber, originalDue.Add(-time.Hour), "supplier delay")
	requireDomainError(t, err, apperrors.CodeValidation)

	newDue := originalDue.Add(48 * time.Hour)
	extension, err := svc.ExtendDeadline(ctx, &operator, created.RequestNumber, newDue, "supplier delay")
	require.NoError(t, err)
	require.NotNil(t, extension.OldDueAt)
	assert.Equal(t, originalDue, *extension.OldDueAt)
	assert.Equal(t, newDue, extension.NewDueAt)

	reloaded, err := svc.GetTicket(ctx, &operator, created.RequestNumber)
	require.NoError(t, err)
	require.NotNil(t, reloaded.DueAt)
	assert.Equal(t, newDue, *reloaded.DueAt)
}

func TestUpdateTicketKeepsDueDateWhenOmitted(t *testing.T) {
	store := repotest.NewStore()
	operator, _, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)
	require.NotNil(t, created.DueAt)
	originalDue := *created.DueAt

	input := createInput()
	updated, err := svc.UpdateTicket(ctx, &operator, created.RequestNumber, service.TicketUpdateInput{
		ApplianceType:      input.ApplianceType,
		ApplianceModel:     input.ApplianceModel,
		IssueType:          input.IssueType,
		ProblemDescription: "still no power, board suspected",
		ClientName:         input.ClientName,
		ClientPhone:        input.ClientPhone,
		AssigneeUsername:   input.AssigneeUsername,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DueAt)
	assert.True(t, updated.DueAt.Equal(originalDue))

	newDue := fixedNow.Add(120 * time.Hour)
	updated, err = svc.UpdateTicket(ctx, &operator, created.RequestNumber, service.TicketUpdateInput{
		ApplianceType:      input.ApplianceType,
		ApplianceModel:     input.ApplianceModel,
		IssueType:          input.IssueType,
		ProblemDescription: input.ProblemDescription,
		ClientName:         input.ClientName,
		ClientPhone:        input.ClientPhone,
		AssigneeUsername:   input.AssigneeUsername,
		DueAt:              &newDue,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DueAt)
	assert.True(t, updated.DueAt.Equal(newDue))
}

func TestDeleteTicket(t *testing.T) {
	store := repotest.NewStore()
	operator, master, _ := seedUsers(store)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.CreateTicket(ctx, &operator, createInput())
	require.NoError(t, err)

	// Populate every dependent table before deleting.
	_, err = svc.ChangeStatus(ctx, &master, created.RequestNumber, domain.TicketStatusInProgress)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, &master, created.RequestNumber, "compressor hums")
	require.NoError(t, err)
	_, err = svc.AddPart(ctx, &master, created.RequestNumber, "start relay", 1)
	require.NoError(t, err)
	_, err = svc.ExtendDeadline(ctx, &operator, created.RequestNumber, fixedNow.Add(96*time.Hour), "parts on order")
	require.NoError(t, err)
	require.NoError(t, store.NotificationsRepo().Create(ctx, &domain.Notification{
		UserID:   master.ID,
		TicketID: &created.ID,
		Message:  "Ticket #1 was assigned to you",
	}))

	err = svc.DeleteTicket(ctx, &master, created.RequestNumber)
	requireDomainError(t, err, apperrors.CodeForbidden)

	require.NoError(t, svc.DeleteTicket(ctx, &operator, created.RequestNumber))

	_, err = svc.GetTicket(ctx, &operator, created.RequestNumber)
	requireDomainError(t, err, apperrors.CodeNotFound)

	// Dependent rows go with the ticket; the notification keeps its row but
	// loses the ticket reference.
	assert.Empty(t, store.History())
	assert.Empty(t, store.Comments())
	assert.Empty(t, store.Parts())
	assert.Empty(t, store.Extensions())
	assert.Empty(t, store.Assignees())
	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	assert.Nil(t, notifications[0].TicketID)
}

func TestNormalizePhone(t *testing.T) {
	normalized, err := service.NormalizePhone("+7 (912) 345-67-89")
	require.NoError(t, err)
	assert.Equal(t, "79123456789", normalized)

	_, err = service.NormalizePhone("12345")
	require.Error(t, err)

	_, err = service.NormalizePhone("1234567890123456")
	require.Error(t, err)
}

func requireDomainError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}
