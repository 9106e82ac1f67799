// Package repotest provides in-memory repository implementations for tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
)

// Store is a single in-memory database shared by the fake repositories.
type Store struct {
	mu sync.Mutex

	users         map[int64]*domain.User
	clients       map[int64]*domain.Client
	appliances    map[int64]*domain.Appliance
	issueTypes    map[int64]*domain.IssueType
	tickets       map[int64]*domain.Ticket
	history       []domain.StatusChange
	comments      []domain.TicketComment
	parts         []domain.TicketPart
	assignees     map[[2]int64]domain.TicketAssignee
	extensions    []domain.DeadlineExtension
	notifications map[int64]*domain.Notification

	nextID int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:         map[int64]*domain.User{},
		clients:       map[int64]*domain.Client{},
		appliances:    map[int64]*domain.Appliance{},
		issueTypes:    map[int64]*domain.IssueType{},
		tickets:       map[int64]*domain.Ticket{},
		assignees:     map[[2]int64]domain.TicketAssignee{},
		notifications: map[int64]*domain.Notification{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser inserts a user directly, assigning an ID if needed.
func (s *Store) AddUser(user domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.id()
	}
	s.users[user.ID] = &user
	return user
}

// History returns a copy of the append-only status history.
func (s *Store) History() []domain.StatusChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StatusChange, len(s.history))
	copy(out, s.history)
	return out
}

// Tickets returns a copy of all stored tickets.
func (s *Store) Tickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clients returns a copy of all stored clients.
func (s *Store) Clients() []domain.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Comments returns a copy of all comment rows.
func (s *Store) Comments() []domain.TicketComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TicketComment, len(s.comments))
	copy(out, s.comments)
	return out
}

// Parts returns a copy of all part rows.
func (s *Store) Parts() []domain.TicketPart {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TicketPart, len(s.parts))
	copy(out, s.parts)
	return out
}

// Extensions returns a copy of all deadline extension rows.
func (s *Store) Extensions() []domain.DeadlineExtension {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DeadlineExtension, len(s.extensions))
	copy(out, s.extensions)
	return out
}

// Assignees returns a copy of the assignee rows.
func (s *Store) Assignees() []domain.TicketAssignee {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TicketAssignee, 0, len(s.assignees))
	for _, a := range s.assignees {
		out = append(out, a)
	}
	return out
}

// Notifications returns a copy of all notification rows.
func (s *Store) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Users returns the fake user repository bound to the store.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// ClientsRepo returns the fake client repository.
func (s *Store) ClientsRepo() repository.ClientRepository { return &clientRepo{s} }

// AppliancesRepo returns the fake appliance repository.
func (s *Store) AppliancesRepo() repository.ApplianceRepository { return &applianceRepo{s} }

// IssueTypesRepo returns the fake issue type repository.
func (s *Store) IssueTypesRepo() repository.IssueTypeRepository { return &issueTypeRepo{s} }

// TicketsRepo returns the fake ticket repository.
func (s *Store) TicketsRepo() repository.TicketRepository { return &ticketRepo{s} }

// HistoryRepo returns the fake status history repository.
func (s *Store) HistoryRepo() repository.StatusHistoryRepository { return &historyRepo{s} }

// CommentsRepo returns the fake comment repository.
func (s *Store) CommentsRepo() repository.CommentRepository { return &commentRepo{s} }

// PartsRepo returns the fake part repository.
func (s *Store) PartsRepo() repository.PartRepository { return &partRepo{s} }

// AssigneesRepo returns the fake assignee repository.
func (s *Store) AssigneesRepo() repository.AssigneeRepository { return &assigneeRepo{s} }

// ExtensionsRepo returns the fake deadline extension repository.
func (s *Store) ExtensionsRepo() repository.ExtensionRepository { return &extensionRepo{s} }

// NotificationsRepo returns the fake notification repository.
func (s *Store) NotificationsRepo() repository.NotificationRepository { return &notificationRepo{s} }

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Username == user.Username {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
		}
	}
	user.ID = r.s.id()
	clone := *user
	r.s.users[user.ID] = &clone
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		out = append(out, *user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepo) ListMasters(_ context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.User
	for _, user := range r.s.users {
		if user.Role == domain.RoleMaster && user.IsActive {
			out = append(out, *user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepo) SetActive(_ context.Context, id int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.IsActive = active
	return nil
}

type clientRepo struct{ s *Store }

func (r *clientRepo) Create(_ context.Context, client *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	client.ID = r.s.id()
	clone := *client
	r.s.clients[client.ID] = &clone
	return nil
}

func (r *clientRepo) GetByID(_ context.Context, id int64) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	client, ok := r.s.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *client
	return &clone, nil
}

func (r *clientRepo) GetByPhone(_ context.Context, phone string) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, client := range r.s.clients {
		if client.Phone == phone {
			clone := *client
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *clientRepo) UpdateName(_ context.Context, id int64, fullName string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	client, ok := r.s.clients[id]
	if !ok {
		return pgx.ErrNoRows
	}
	client.FullName = fullName
	return nil
}

type applianceRepo struct{ s *Store }

func (r *applianceRepo) Create(_ context.Context, appliance *domain.Appliance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appliance.ID = r.s.id()
	clone := *appliance
	r.s.appliances[appliance.ID] = &clone
	return nil
}

func (r *applianceRepo) GetByID(_ context.Context, id int64) (*domain.Appliance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	appliance, ok := r.s.appliances[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *appliance
	return &clone, nil
}

func (r *applianceRepo) GetByTypeModel(_ context.Context, applianceType, applianceModel string) (*domain.Appliance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, appliance := range r.s.appliances {
		if appliance.ApplianceType == applianceType && appliance.ApplianceModel == applianceModel {
			clone := *appliance
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type issueTypeRepo struct{ s *Store }

func (r *issueTypeRepo) Create(_ context.Context, issueType *domain.IssueType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	issueType.ID = r.s.id()
	clone := *issueType
	r.s.issueTypes[issueType.ID] = &clone
	return nil
}

func (r *issueTypeRepo) GetByName(_ context.Context, name string) (*domain.IssueType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, issueType := range r.s.issueTypes {
		if issueType.Name == name {
			clone := *issueType
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *issueTypeRepo) List(_ context.Context) ([]domain.IssueType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.IssueType, 0, len(r.s.issueTypes))
	for _, issueType := range r.s.issueTypes {
		out = append(out, *issueType)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket.ID = r.s.id()
	clone := *ticket
	r.s.tickets[ticket.ID] = &clone
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	r.s.tickets[ticket.ID] = &clone
	return nil
}

func (r *ticketRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.tickets, id)
	// Mirror the schema's referential actions: children cascade,
	// notifications keep the row with the ticket reference nulled.
	r.s.history = dropByTicket(r.s.history, id, func(c domain.StatusChange) int64 { return c.TicketID })
	r.s.comments = dropByTicket(r.s.comments, id, func(c domain.TicketComment) int64 { return c.TicketID })
	r.s.parts = dropByTicket(r.s.parts, id, func(p domain.TicketPart) int64 { return p.TicketID })
	r.s.extensions = dropByTicket(r.s.extensions, id, func(e domain.DeadlineExtension) int64 { return e.TicketID })
	for key := range r.s.assignees {
		if key[0] == id {
			delete(r.s.assignees, key)
		}
	}
	for _, notification := range r.s.notifications {
		if notification.TicketID != nil && *notification.TicketID == id {
			notification.TicketID = nil
		}
	}
	return nil
}

func dropByTicket[T any](rows []T, ticketID int64, key func(T) int64) []T {
	out := rows[:0]
	for _, row := range rows {
		if key(row) != ticketID {
			out = append(out, row)
		}
	}
	return out
}

func (r *ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *ticketRepo) GetByRequestNumber(_ context.Context, number int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ticket := range r.s.tickets {
		if ticket.RequestNumber == number {
			clone := *ticket
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *ticketRepo) NextRequestNumber(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var max int64
	for _, ticket := range r.s.tickets {
		if ticket.RequestNumber > max {
			max = ticket.RequestNumber
		}
	}
	return max + 1, nil
}

func (r *ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.s.tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestNumber > out[j].RequestNumber })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(ticket *domain.Ticket, filter repository.TicketFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.AssigneeID != nil {
		if ticket.AssignedSpecialistID == nil || *ticket.AssignedSpecialistID != *filter.AssigneeID {
			return false
		}
	}
	if filter.ClientID != nil && ticket.ClientID != *filter.ClientID {
		return false
	}
	if filter.IssueTypeID != nil {
		if ticket.IssueTypeID == nil || *ticket.IssueTypeID != *filter.IssueTypeID {
			return false
		}
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(*filter.SearchTerm)
		if !strings.Contains(strings.ToLower(ticket.ProblemDescription), term) {
			return false
		}
	}
	if filter.CreatedFrom != nil && ticket.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && ticket.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

func (r *ticketRepo) ListOverdue(_ context.Context, now time.Time, assigneeID *int64) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.s.tickets {
		if !ticket.Overdue(now) {
			continue
		}
		if assigneeID != nil {
			if ticket.AssignedSpecialistID == nil || *ticket.AssignedSpecialistID != *assigneeID {
				continue
			}
		}
		out = append(out, *ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestNumber < out[j].RequestNumber })
	return out, nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Append(_ context.Context, change *domain.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	change.ID = r.s.id()
	r.s.history = append(r.s.history, *change)
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.StatusChange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.StatusChange
	for _, change := range r.s.history {
		if change.TicketID == ticketID {
			out = append(out, change)
		}
	}
	return out, nil
}

type commentRepo struct{ s *Store }

func (r *commentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comment.ID = r.s.id()
	r.s.comments = append(r.s.comments, *comment)
	return nil
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.TicketComment
	for _, comment := range r.s.comments {
		if comment.TicketID == ticketID {
			out = append(out, comment)
		}
	}
	return out, nil
}

type partRepo struct{ s *Store }

func (r *partRepo) Create(_ context.Context, part *domain.TicketPart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	part.ID = r.s.id()
	r.s.parts = append(r.s.parts, *part)
	return nil
}

func (r *partRepo) Delete(_ context.Context, ticketID, partID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, part := range r.s.parts {
		if part.ID == partID && part.TicketID == ticketID {
			r.s.parts = append(r.s.parts[:i], r.s.parts[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *partRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketPart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.TicketPart
	for _, part := range r.s.parts {
		if part.TicketID == ticketID {
			out = append(out, part)
		}
	}
	return out, nil
}

type assigneeRepo struct{ s *Store }

func (r *assigneeRepo) Upsert(_ context.Context, assignee *domain.TicketAssignee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.assignees[[2]int64{assignee.TicketID, assignee.UserID}] = *assignee
	return nil
}

func (r *assigneeRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketAssignee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.TicketAssignee
	for key, assignee := range r.s.assignees {
		if key[0] == ticketID {
			out = append(out, assignee)
		}
	}
	return out, nil
}

type extensionRepo struct{ s *Store }

func (r *extensionRepo) Create(_ context.Context, extension *domain.DeadlineExtension) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	extension.ID = r.s.id()
	r.s.extensions = append(r.s.extensions, *extension)
	return nil
}

func (r *extensionRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.DeadlineExtension, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.DeadlineExtension
	for _, extension := range r.s.extensions {
		if extension.TicketID == ticketID {
			out = append(out, extension)
		}
	}
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification.ID = r.s.id()
	clone := *notification
	r.s.notifications[notification.ID] = &clone
	return nil
}

func (r *notificationRepo) ListByUser(_ context.Context, userID int64, limit int) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Notification
	for _, notification := range r.s.notifications {
		if notification.UserID == userID {
			out = append(out, *notification)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, userID, notificationID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification, ok := r.s.notifications[notificationID]
	if !ok || notification.UserID != userID {
		return pgx.ErrNoRows
	}
	notification.IsRead = true
	return nil
}

func (r *notificationRepo) CountUnread(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, notification := range r.s.notifications {
		if notification.UserID == userID && !notification.IsRead {
			count++
		}
	}
	return count, nil
}
