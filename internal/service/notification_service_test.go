package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository/repotest"
	"github.com/spec-kit/repair-service/internal/service"
)

func newNotificationService(store *repotest.Store, dispatcher events.Dispatcher) *service.NotificationService {
	svc := service.NewNotificationService(store.NotificationsRepo(), store.Users(), dispatcher, nil, zap.NewNop())
	svc.RegisterHandlers()
	return svc
}

func notificationsFor(store *repotest.Store, userID int64) []domain.Notification {
	var out []domain.Notification
	for _, n := range store.Notifications() {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func TestStatusChangeNotifiesAssignee(t *testing.T) {
	store := repotest.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	newNotificationService(store, dispatcher)
	ctx := context.Background()

	assignee := int64(7)
	err := dispatcher.Publish(ctx, events.Event{
		Type:          events.EventTicketStatusChanged,
		TicketID:      1,
		RequestNumber: 42,
		ActorUserID:   3,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  domain.TicketStatusNew,
			NewStatus:  domain.TicketStatusInProgress,
			AssigneeID: &assignee,
		},
	})
	require.NoError(t, err)

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, assignee, notifications[0].UserID)
	assert.Contains(t, notifications[0].Message, "#42")
	assert.False(t, notifications[0].IsRead)
}

func TestStatusChangeNotifiesOperators(t *testing.T) {
	store := repotest.NewStore()
	operatorA := store.AddUser(domain.User{Username: "front1", Role: domain.RoleOperator, IsActive: true})
	operatorB := store.AddUser(domain.User{Username: "front2", Role: domain.RoleOperator, IsActive: true})
	retired := store.AddUser(domain.User{Username: "gone", Role: domain.RoleOperator, IsActive: false})
	admin := store.AddUser(domain.User{Username: "admin", Role: domain.RoleAdmin, IsActive: true})
	master := store.AddUser(domain.User{Username: "ivanov", Role: domain.RoleMaster, IsActive: true})
	dispatcher := events.NewInMemoryDispatcher()
	newNotificationService(store, dispatcher)
	ctx := context.Background()

	// The master moves the ticket; the assignee is the actor, so only the
	// active operators hear about it.
	err := dispatcher.Publish(ctx, events.Event{
		Type:          events.EventTicketStatusChanged,
		TicketID:      1,
		RequestNumber: 42,
		ActorUserID:   master.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  domain.TicketStatusInProgress,
			NewStatus:  domain.TicketStatusReady,
			AssigneeID: &master.ID,
		},
	})
	require.NoError(t, err)

	assert.Len(t, notificationsFor(store, operatorA.ID), 1)
	assert.Len(t, notificationsFor(store, operatorB.ID), 1)
	assert.Empty(t, notificationsFor(store, retired.ID))
	assert.Empty(t, notificationsFor(store, admin.ID))
	assert.Empty(t, notificationsFor(store, master.ID))
}

func TestStatusChangeByOperatorSkipsActor(t *testing.T) {
	store := repotest.NewStore()
	acting := store.AddUser(domain.User{Username: "front1", Role: domain.RoleOperator, IsActive: true})
	other := store.AddUser(domain.User{Username: "front2", Role: domain.RoleOperator, IsActive: true})
	master := store.AddUser(domain.User{Username: "ivanov", Role: domain.RoleMaster, IsActive: true})
	dispatcher := events.NewInMemoryDispatcher()
	newNotificationService(store, dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:          events.EventTicketStatusChanged,
		TicketID:      1,
		RequestNumber: 42,
		ActorUserID:   acting.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  domain.TicketStatusNew,
			NewStatus:  domain.TicketStatusInProgress,
			AssigneeID: &master.ID,
		},
	})
	require.NoError(t, err)

	assert.Empty(t, notificationsFor(store, acting.ID))
	assert.Len(t, notificationsFor(store, other.ID), 1)
	assert.Len(t, notificationsFor(store, master.ID), 1)
}

func TestAssignmentAtCreationNotifiesMaster(t *testing.T) {
	store := repotest.NewStore()
	operator, master, _ := seedUsers(store)
	dispatcher := events.NewInMemoryDispatcher()
	newNotificationService(store, dispatcher)

	ticketSvc := service.NewTicketService(service.TicketDependencies{
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
		Dispatcher:    dispatcher,
	})

	ticket, err := ticketSvc.CreateTicket(context.Background(), &operator, createInput())
	require.NoError(t, err)

	notifications := notificationsFor(store, master.ID)
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "assigned to you")
	require.NotNil(t, notifications[0].TicketID)
	assert.Equal(t, ticket.ID, *notifications[0].TicketID)
	assert.Empty(t, notificationsFor(store, operator.ID))
}

func TestOwnActionsDoNotNotify(t *testing.T) {
	store := repotest.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	newNotificationService(store, dispatcher)

	actor := int64(3)
	err := dispatcher.Publish(context.Background(), events.Event{
		Type:          events.EventTicketStatusChanged,
		TicketID:      1,
		RequestNumber: 42,
		ActorUserID:   actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  domain.TicketStatusNew,
			NewStatus:  domain.TicketStatusReady,
			AssigneeID: &actor,
		},
	})
	require.NoError(t, err)
	assert.Empty(t, store.Notifications())
}

func TestAssignmentNotification(t *testing.T) {
	store := repotest.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	newNotificationService(store, dispatcher)
	ctx := context.Background()

	err := dispatcher.Publish(ctx, events.Event{
		Type:          events.EventTicketAssigned,
		TicketID:      5,
		RequestNumber: 10,
		ActorUserID:   1,
		Payload:       events.TicketAssignedPayload{AssigneeID: 9},
	})
	require.NoError(t, err)

	notifications := store.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, int64(9), notifications[0].UserID)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	store := repotest.NewStore()
	dispatcher := events.NewInMemoryDispatcher()
	svc := newNotificationService(store, dispatcher)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := dispatcher.Publish(ctx, events.Event{
			Type:          events.EventTicketAssigned,
			TicketID:      int64(i + 1),
			RequestNumber: int64(i + 1),
			ActorUserID:   1,
			Payload:       events.TicketAssignedPayload{AssigneeID: 9},
		})
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	notifications, err := svc.ListForUser(ctx, 9, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 3)

	require.NoError(t, svc.MarkRead(ctx, 9, notifications[0].ID))

	count, err = svc.UnreadCount(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// A user cannot mark someone else's notification.
	err = svc.MarkRead(ctx, 4, notifications[1].ID)
	require.Error(t, err)
}
