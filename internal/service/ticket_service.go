package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// defaultDueIn is the deadline applied to tickets created without an
// explicit due date.
const defaultDueIn = 72 * time.Hour

// TicketService coordinates the ticket lifecycle: creation, assignment,
// status changes with their append-only history, and the dependent records
// (comments, parts, deadline extensions).
type TicketService struct {
	tickets    repository.TicketRepository
	clients    repository.ClientRepository
	appliances repository.ApplianceRepository
	issueTypes repository.IssueTypeRepository
	users      repository.UserRepository
	history    repository.StatusHistoryRepository
	comments   repository.CommentRepository
	parts      repository.PartRepository
	assignees  repository.AssigneeRepository
	extensions repository.ExtensionRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	ClientRepo    repository.ClientRepository
	ApplianceRepo repository.ApplianceRepository
	IssueTypeRepo repository.IssueTypeRepository
	UserRepo      repository.UserRepository
	HistoryRepo   repository.StatusHistoryRepository
	CommentRepo   repository.CommentRepository
	PartRepo      repository.PartRepository
	AssigneeRepo  repository.AssigneeRepository
	ExtensionRepo repository.ExtensionRepository
	Dispatcher    events.Dispatcher
	Now           func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		clients:    deps.ClientRepo,
		appliances: deps.ApplianceRepo,
		issueTypes: deps.IssueTypeRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		comments:   deps.CommentRepo,
		parts:      deps.PartRepo,
		assignees:  deps.AssigneeRepo,
		extensions: deps.ExtensionRepo,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// TicketCreateInput describes ticket creation payload. Client, appliance and
// issue type are resolved by their natural keys and created on first use.
type TicketCreateInput struct {
	ApplianceType      string
	ApplianceModel     string
	IssueType          string
	ProblemDescription string
	ClientName         string
	ClientPhone        string
	AssigneeUsername   string
	Status             domain.TicketStatus
	DueAt              *time.Time
}

// TicketUpdateInput describes an operator edit of ticket fields.
type TicketUpdateInput struct {
	ApplianceType      string
	ApplianceModel     string
	IssueType          string
	ProblemDescription string
	ClientName         string
	ClientPhone        string
	AssigneeUsername   string
	Status             domain.TicketStatus
	DueAt              *time.Time
}

// TicketDetail aggregates a ticket with its dependent records.
type TicketDetail struct {
	Ticket     *domain.Ticket
	Client     *domain.Client
	Appliance  *domain.Appliance
	History    []domain.StatusChange
	Comments   []domain.TicketComment
	Parts      []domain.TicketPart
	Extensions []domain.DeadlineExtension
}

// CreateTicket validates the payload, resolves client/appliance/issue type by
// natural key, allocates the next request number and writes the ticket with
// its initial history row.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if !actor.CanManageTickets() {
		return nil, apperrors.NewForbidden("only admin or operator can create tickets")
	}
	if err := validateTicketInput(input.ApplianceType, input.ApplianceModel, input.ProblemDescription, input.ClientName); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.ClientPhone)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.TicketStatusNew
	}
	if !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(status)})
	}

	clientID, err := s.getOrCreateClient(ctx, input.ClientName, phone)
	if err != nil {
		return nil, err
	}
	applianceID, err := s.getOrCreateAppliance(ctx, input.ApplianceType, input.ApplianceModel)
	if err != nil {
		return nil, err
	}
	issueTypeID, err := s.getOrCreateIssueType(ctx, input.IssueType)
	if err != nil {
		return nil, err
	}

	var assignee *domain.User
	if strings.TrimSpace(input.AssigneeUsername) != "" {
		assignee, err = s.resolveMaster(ctx, input.AssigneeUsername)
		if err != nil {
			return nil, err
		}
	}

	number, err := s.tickets.NextRequestNumber(ctx)
	if err != nil {
		return nil, err
	}

	dueAt := input.DueAt
	if dueAt == nil {
		d := s.now().Add(defaultDueIn)
		dueAt = &d
	}

	ticket := &domain.Ticket{
		RequestNumber:      number,
		Status:             status,
		ClientID:           clientID,
		ApplianceID:        applianceID,
		IssueTypeID:        issueTypeID,
		ProblemDescription: strings.TrimSpace(input.ProblemDescription),
		DueAt:              dueAt,
	}
	if assignee != nil {
		ticket.AssignedSpecialistID = &assignee.ID
	}
	applyStatusTimestamps(ticket, status, s.now())

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.history.Append(ctx, &domain.StatusChange{
		TicketID:        ticket.ID,
		OldStatus:       nil,
		NewStatus:       status,
		ChangedByUserID: actor.ID,
	}); err != nil {
		return nil, err
	}
	if assignee != nil {
		if err := s.assignees.Upsert(ctx, &domain.TicketAssignee{
			TicketID:         ticket.ID,
			UserID:           assignee.ID,
			Role:             domain.AssigneeRolePrimary,
			AssignedByUserID: actor.ID,
		}); err != nil {
			return nil, err
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventTicketCreated,
		TicketID:      ticket.ID,
		RequestNumber: ticket.RequestNumber,
		ActorUserID:   actor.ID,
		Payload: events.TicketCreatedPayload{
			Status:     ticket.Status,
			AssigneeID: ticket.AssignedSpecialistID,
			ClientID:   ticket.ClientID,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket by request number, enforcing master scoping.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, number int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByRequestNumber(ctx, number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"request_number": number})
		}
		return nil, err
	}
	if err := ensureTicketAccess(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicketDetail fetches a ticket together with its history, comments,
// parts and extensions.
func (s *TicketService) GetTicketDetail(ctx context.Context, actor *domain.User, number int64) (*TicketDetail, error) {
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, ticket.ClientID)
	if err != nil {
		return nil, err
	}
	appliance, err := s.appliances.GetByID(ctx, ticket.ApplianceID)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	parts, err := s.parts.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	extensions, err := s.extensions.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{
		Ticket:     ticket,
		Client:     client,
		Appliance:  appliance,
		History:    history,
		Comments:   comments,
		Parts:      parts,
		Extensions: extensions,
	}, nil
}

// ListTickets lists tickets matching the filter. A master only ever sees
// tickets assigned to them, regardless of the requested filter.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if actor.Role == domain.RoleMaster {
		filter.AssigneeID = &actor.ID
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// AssignSpecialist sets the responsible master on a ticket.
func (s *TicketService) AssignSpecialist(ctx context.Context, actor *domain.User, number int64, username string) (*domain.Ticket, error) {
	if !actor.CanManageTickets() {
		return nil, apperrors.NewForbidden("only admin or operator can assign specialists")
	}
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return nil, err
	}
	specialist, err := s.resolveMaster(ctx, username)
	if err != nil {
		return nil, err
	}

	ticket.AssignedSpecialistID = &specialist.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.assignees.Upsert(ctx, &domain.TicketAssignee{
		TicketID:         ticket.ID,
		UserID:           specialist.ID,
		Role:             domain.AssigneeRolePrimary,
		AssignedByUserID: actor.ID,
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventTicketAssigned,
		TicketID:      ticket.ID,
		RequestNumber: ticket.RequestNumber,
		ActorUserID:   actor.ID,
		Payload:       events.TicketAssignedPayload{AssigneeID: specialist.ID},
	})
	return ticket, nil
}

// ChangeStatus moves a ticket to a new status. Any status may move to any
// other; the change appends exactly one history row. Changing to the current
// status is a no-op.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, number int64, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(newStatus)})
	}
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return nil, err
	}
	if ticket.Status == newStatus {
		return ticket, nil
	}
	return s.applyStatusChange(ctx, actor, ticket, newStatus)
}

func (s *TicketService) applyStatusChange(ctx context.Context, actor *domain.User, ticket *domain.Ticket, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	oldStatus := ticket.Status
	ticket.Status = newStatus
	applyStatusTimestamps(ticket, newStatus, s.now())

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.history.Append(ctx, &domain.StatusChange{
		TicketID:        ticket.ID,
		OldStatus:       &oldStatus,
		NewStatus:       newStatus,
		ChangedByUserID: actor.ID,
	}); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventTicketStatusChanged,
		TicketID:      ticket.ID,
		RequestNumber: ticket.RequestNumber,
		ActorUserID:   actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  oldStatus,
			NewStatus:  newStatus,
			AssigneeID: ticket.AssignedSpecialistID,
		},
	})
	return ticket, nil
}

// UpdateTicket applies an operator edit. A status change embedded in the
// edit goes through the same history-logged path as ChangeStatus.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, number int64, input TicketUpdateInput) (*domain.Ticket, error) {
	if !actor.CanManageTickets() {
		return nil, apperrors.NewForbidden("only admin or operator can edit tickets")
	}
	if err := validateTicketInput(input.ApplianceType, input.ApplianceModel, input.ProblemDescription, input.ClientName); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.ClientPhone)
	if err != nil {
		return nil, err
	}
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return nil, err
	}

	clientID, err := s.getOrCreateClient(ctx, input.ClientName, phone)
	if err != nil {
		return nil, err
	}
	applianceID, err := s.getOrCreateAppliance(ctx, input.ApplianceType, input.ApplianceModel)
	if err != nil {
		return nil, err
	}
	issueTypeID, err := s.getOrCreateIssueType(ctx, input.IssueType)
	if err != nil {
		return nil, err
	}

	ticket.ClientID = clientID
	ticket.ApplianceID = applianceID
	ticket.IssueTypeID = issueTypeID
	ticket.ProblemDescription = strings.TrimSpace(input.ProblemDescription)
	// An omitted due date leaves the current deadline alone.
	if input.DueAt != nil {
		ticket.DueAt = input.DueAt
	}

	if strings.TrimSpace(input.AssigneeUsername) != "" {
		specialist, err := s.resolveMaster(ctx, input.AssigneeUsername)
		if err != nil {
			return nil, err
		}
		ticket.AssignedSpecialistID = &specialist.ID
		if err := s.assignees.Upsert(ctx, &domain.TicketAssignee{
			TicketID:         ticket.ID,
			UserID:           specialist.ID,
			Role:             domain.AssigneeRolePrimary,
			AssignedByUserID: actor.ID,
		}); err != nil {
			return nil, err
		}
	} else {
		ticket.AssignedSpecialistID = nil
	}

	if input.Status != "" && input.Status != ticket.Status {
		if !domain.ValidStatus(input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(input.Status)})
		}
		return s.applyStatusChange(ctx, actor, ticket, input.Status)
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// DeleteTicket removes a ticket; the schema cascades to history, comments,
// parts, assignees and extensions.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, number int64) error {
	if !actor.CanManageTickets() {
		return apperrors.NewForbidden("only admin or operator can delete tickets")
	}
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return err
	}
	return s.tickets.Delete(ctx, ticket.ID)
}

// AddComment appends a comment to a ticket.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, number int64, body string) (*domain.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return nil, err
	}

	comment := &domain.TicketComment{
		TicketID:     ticket.ID,
		AuthorUserID: actor.ID,
		Body:         body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventTicketCommentAdded,
		TicketID:      ticket.ID,
		RequestNumber: ticket.RequestNumber,
		ActorUserID:   actor.ID,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			BodyPreview: stringPreview(body, 120),
			AssigneeID:  ticket.AssignedSpecialistID,
		},
	})
	return comment, nil
}

// AddPart records a spare part used on a ticket. Masters only.
func (s *TicketService) AddPart(ctx context.Context, actor *domain.User, number int64, partName string, quantity int) (*domain.TicketPart, error) {
	if actor.Role != domain.RoleMaster {
		return nil, apperrors.NewForbidden("only a master can record parts")
	}
	partName = strings.TrimSpace(partName)
	if partName == "" {
		return nil, apperrors.NewValidationError("part name required", nil)
	}
	if quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be positive", map[string]any{"quantity": quantity})
	}
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return nil, err
	}

	part := &domain.TicketPart{
		TicketID: ticket.ID,
		PartName: partName,
		Quantity: quantity,
	}
	if err := s.parts.Create(ctx, part); err != nil {
		return nil, err
	}
	return part, nil
}

// RemovePart deletes a recorded part. Masters only.
func (s *TicketService) RemovePart(ctx context.Context, actor *domain.User, number, partID int64) error {
	if actor.Role != domain.RoleMaster {
		return apperrors.NewForbidden("only a master can remove parts")
	}
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return err
	}
	if err := s.parts.Delete(ctx, ticket.ID, partID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("part", map[string]any{"part_id": partID})
		}
		return err
	}
	return nil
}

// ExtendDeadline records a deadline extension and moves the ticket due date.
func (s *TicketService) ExtendDeadline(ctx context.Context, actor *domain.User, number int64, newDueAt time.Time, reason string) (*domain.DeadlineExtension, error) {
	ticket, err := s.GetTicket(ctx, actor, number)
	if err != nil {
		return nil, err
	}
	if ticket.DueAt != nil && !newDueAt.After(*ticket.DueAt) {
		return nil, apperrors.NewValidationError("new due date must be after the current one", nil)
	}

	extension := &domain.DeadlineExtension{
		TicketID:          ticket.ID,
		OldDueAt:          ticket.DueAt,
		NewDueAt:          newDueAt,
		Reason:            strings.TrimSpace(reason),
		RequestedByUserID: actor.ID,
	}
	if err := s.extensions.Create(ctx, extension); err != nil {
		return nil, err
	}

	ticket.DueAt = &newDueAt
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:          events.EventDeadlineExtended,
		TicketID:      ticket.ID,
		RequestNumber: ticket.RequestNumber,
		ActorUserID:   actor.ID,
		Payload: events.DeadlineExtendedPayload{
			OldDueAt:   extension.OldDueAt,
			NewDueAt:   extension.NewDueAt,
			Reason:     extension.Reason,
			AssigneeID: ticket.AssignedSpecialistID,
		},
	})
	return extension, nil
}

func (s *TicketService) getOrCreateClient(ctx context.Context, fullName, phone string) (int64, error) {
	fullName = strings.TrimSpace(fullName)
	existing, err := s.clients.GetByPhone(ctx, phone)
	if err == nil {
		// Same phone means same client; refresh the name on the existing row.
		if existing.FullName != fullName {
			if err := s.clients.UpdateName(ctx, existing.ID, fullName); err != nil {
				return 0, err
			}
		}
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	client := &domain.Client{FullName: fullName, Phone: phone}
	if err := s.clients.Create(ctx, client); err != nil {
		return 0, err
	}
	return client.ID, nil
}

func (s *TicketService) getOrCreateAppliance(ctx context.Context, applianceType, applianceModel string) (int64, error) {
	applianceType = strings.TrimSpace(applianceType)
	applianceModel = strings.TrimSpace(applianceModel)
	existing, err := s.appliances.GetByTypeModel(ctx, applianceType, applianceModel)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	appliance := &domain.Appliance{ApplianceType: applianceType, ApplianceModel: applianceModel}
	if err := s.appliances.Create(ctx, appliance); err != nil {
		return 0, err
	}
	return appliance.ID, nil
}

func (s *TicketService) getOrCreateIssueType(ctx context.Context, name string) (*int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	existing, err := s.issueTypes.GetByName(ctx, name)
	if err == nil {
		return &existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	issueType := &domain.IssueType{Name: name}
	if err := s.issueTypes.Create(ctx, issueType); err != nil {
		return nil, err
	}
	return &issueType.ID, nil
}

func (s *TicketService) resolveMaster(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown specialist", map[string]any{"username": username})
		}
		return nil, err
	}
	if user.Role != domain.RoleMaster {
		return nil, apperrors.NewValidationError("assignee is not a master", map[string]any{"username": username})
	}
	if !user.IsActive {
		return nil, apperrors.NewValidationError("assignee is deactivated", map[string]any{"username": username})
	}
	return user, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

/// applyStatusTimestamps maintains the timestamp invariants: started_at is
// set the first time a ticket enters in_progress, completed_at is set only
// while the ticket is ready and cleared when it leaves ready.
func applyStatusTimestamps(ticket *domain.Ticket, status domain.TicketStatus, now time.Time) {
	switch status {
	case domain.TicketStatusInProgress:
		if ticket.StartedAt == nil {
			ticket.StartedAt = &now
		}
		ticket.CompletedAt = nil
	case domain.TicketStatusReady:
		ticket.CompletedAt = &now
	default:
		ticket.CompletedAt = nil
	}
}

// ensureTicketAccess enforces master scoping: a master may only touch
// tickets assigned to them.
func ensureTicketAccess(actor *domain.User, ticket *domain.Ticket) error {
	if actor.Role != domain.RoleMaster {
		return nil
	}
	if ticket.AssignedSpecialistID != nil && *ticket.AssignedSpecialistID == actor.ID {
		return nil
	}
	return apperrors.NewForbidden("ticket is assigned to another specialist")
}

func validateTicketInput(applianceType, applianceModel, problemDescription, clientName string) error {
	missing := map[string]any{}
	if strings.TrimSpace(applianceType) == "" {
		missing["appliance_type"] = "required"
	}
	if strings.TrimSpace(applianceModel) == "" {
		missing["appliance_model"] = "required"
	}
	if strings.TrimSpace(problemDescription) == "" {
		missing["problem_description"] = "required"
	}
	if strings.TrimSpace(clientName) == "" {
		missing["client_name"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields", missing)
	}
	return nil
}

// NormalizePhone strips non-digits and requires 10 to 15 digits.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	normalized := digits.String()
	if len(normalized) < 10 || len(normalized) > 15 {
		return "", apperrors.NewValidationError("phone must contain 10 to 15 digits", map[string]any{"phone": raw})
	}
	return normalized, nil
}

// stringPreview truncates body to at most max runes, with a trailing
// ellipsis when anything was cut.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
