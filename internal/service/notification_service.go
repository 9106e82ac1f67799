package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/repository"
)

const unreadCountTTL = 5 * time.Minute

// NotificationService turns domain events into notification rows and serves
// the per-user inbox. The unread counter is cached in Redis and invalidated
// on every write; report reads never go through this cache.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	dispatcher    events.Dispatcher
	redis         *persistence.Redis
	logger        *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, users repository.UserRepository, dispatcher events.Dispatcher, redis *persistence.Redis, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		dispatcher:    dispatcher,
		redis:         redis,
		logger:        logger,
	}
}

// RegisterHandlers subscribes to the ticket events that produce notifications.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventDeadlineExtended, n.handleDeadlineExtended)
}

// handleCreated notifies the specialist assigned at ticket creation.
func (n *NotificationService) handleCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	if payload.AssigneeID == nil || *payload.AssigneeID == event.ActorUserID {
		return nil
	}
	message := fmt.Sprintf("Ticket #%d was assigned to you", event.RequestNumber)
	return n.create(ctx, *payload.AssigneeID, event.TicketID, message)
}

// handleStatusChanged notifies the assignee and every active operator,
// skipping whoever made the change.
func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("Ticket #%d moved from %s to %s",
		event.RequestNumber, payload.OldStatus, payload.NewStatus)

	notified := map[int64]bool{event.ActorUserID: true}
	if payload.AssigneeID != nil && !notified[*payload.AssigneeID] {
		notified[*payload.AssigneeID] = true
		if err := n.create(ctx, *payload.AssigneeID, event.TicketID, message); err != nil {
			return err
		}
	}
	for _, operator := range n.activeOperators(ctx) {
		if notified[operator.ID] {
			continue
		}
		notified[operator.ID] = true
		if err := n.create(ctx, operator.ID, event.TicketID, message); err != nil {
			return err
		}
	}
	return nil
}

// activeOperators returns the active front-desk accounts. Lookup failures
// are logged and degrade to assignee-only delivery.
func (n *NotificationService) activeOperators(ctx context.Context) []domain.User {
	if n.users == nil {
		return nil
	}
	users, err := n.users.List(ctx)
	if err != nil {
		n.logger.Error("list operators for notification", zap.Error(err))
		return nil
	}
	var operators []domain.User
	for _, user := range users {
		if user.Role == domain.RoleOperator && user.IsActive {
			operators = append(operators, user)
		}
	}
	return operators
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	if payload.AssigneeID == event.ActorUserID {
		return nil
	}
	message := fmt.Sprintf("Ticket #%d was assigned to you", event.RequestNumber)
	return n.create(ctx, payload.AssigneeID, event.TicketID, message)
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return nil
	}
	if payload.AssigneeID == nil || *payload.AssigneeID == event.ActorUserID {
		return nil
	}
	message := fmt.Sprintf("New comment on ticket #%d: %s", event.RequestNumber, payload.BodyPreview)
	return n.create(ctx, *payload.AssigneeID, event.TicketID, message)
}

func (n *NotificationService) handleDeadlineExtended(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DeadlineExtendedPayload)
	if !ok {
		return nil
	}
	if payload.AssigneeID == nil || *payload.AssigneeID == event.ActorUserID {
		return nil
	}
	message := fmt.Sprintf("Deadline for ticket #%d moved to %s",
		event.RequestNumber, payload.NewDueAt.Format(time.RFC3339))
	return n.create(ctx, *payload.AssigneeID, event.TicketID, message)
}

func (n *NotificationService) create(ctx context.Context, userID, ticketID int64, message string) error {
	notification := &domain.Notification{
		UserID:   userID,
		TicketID: &ticketID,
		Message:  message,
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("create notification", zap.Error(err), zap.Int64("user_id", userID))
		return err
	}
	n.invalidateUnreadCount(ctx, userID)
	return nil
}

// ListForUser returns the most recent notifications for a user.
func (n *NotificationService) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	return n.notifications.ListByUser(ctx, userID, limit)
}

// MarkRead marks one notification read.
func (n *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := n.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		return err
	}
	n.invalidateUnreadCount(ctx, userID)
	return nil
}

// UnreadCount returns the unread counter, served from Redis when possible
// and recomputed from SQL otherwise.
func (n *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	key := unreadCountKey(userID)
	if n.redis != nil && n.redis.Client != nil {
		if cached, err := n.redis.Client.Get(ctx, key).Result(); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	count, err := n.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n.redis != nil && n.redis.Client != nil {
		if err := n.redis.Client.Set(ctx, key, count, unreadCountTTL).Err(); err != nil {
			n.logger.Debug("cache unread count", zap.Error(err))
		}
	}
	return count, nil
}

func (n *NotificationService) invalidateUnreadCount(ctx context.Context, userID int64) {
	if n.redis == nil || n.redis.Client == nil {
		return
	}
	if err := n.redis.Client.Del(ctx, unreadCountKey(userID)).Err(); err != nil {
		n.logger.Debug("invalidate unread count", zap.Error(err))
	}
}

func unreadCountKey(userID int64) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}
