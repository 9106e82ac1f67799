package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// TicketFilter captures listing and search parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	AssigneeID  *int64
	ClientID    *int64
	IssueTypeID *int64
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByRequestNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	NextRequestNumber(ctx context.Context) (int64, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOverdue(ctx context.Context, now time.Time, assigneeID *int64) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, request_number, status, client_id, appliance_id, issue_type_id,
               problem_description, assigned_specialist_id, created_at, updated_at,
               due_at, started_at, completed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (request_number, status, client_id, appliance_id, issue_type_id,
                             problem_description, assigned_specialist_id, due_at, started_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.RequestNumber,
		ticket.Status,
		ticket.ClientID,
		ticket.ApplianceID,
		ticket.IssueTypeID,
		ticket.ProblemDescription,
		ticket.AssignedSpecialistID,
		ticket.DueAt,
		ticket.StartedAt,
		ticket.CompletedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, client_id=$2, appliance_id=$3, issue_type_id=$4,
            problem_description=$5, assigned_specialist_id=$6, due_at=$7, started_at=$8,
            completed_at=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.ClientID,
		ticket.ApplianceID,
		ticket.IssueTypeID,
		ticket.ProblemDescription,
		ticket.AssignedSpecialistID,
		ticket.DueAt,
		ticket.StartedAt,
		ticket.CompletedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByRequestNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE request_number=$1`, number)
}

// NextRequestNumber allocates MAX+1. The database serializes writers, and the
// UNIQUE constraint on request_number backstops any race.
func (r *ticketRepository) NextRequestNumber(ctx context.Context) (int64, error) {
	var next int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(request_number), 0) + 1 FROM tickets`).Scan(&next)
	return next, err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.RequestNumber,
		&ticket.Status,
		&ticket.ClientID,
		&ticket.ApplianceID,
		&ticket.IssueTypeID,
		&ticket.ProblemDescription,
		&ticket.AssignedSpecialistID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DueAt,
		&ticket.StartedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_specialist_id=$%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.IssueTypeID != nil {
		args = append(args, *filter.IssueTypeID)
		clauses = append(clauses, fmt.Sprintf("issue_type_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(CAST(request_number AS TEXT) LIKE %s
            OR LOWER(problem_description) LIKE %s
            OR client_id IN (SELECT id FROM clients WHERE LOWER(full_name) LIKE %s OR phone LIKE %s)
            OR appliance_id IN (SELECT id FROM appliances WHERE LOWER(appliance_type) LIKE %s OR LOWER(appliance_model) LIKE %s))`,
			placeholder, placeholder, placeholder, placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY request_number DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListOverdue returns exactly the tickets with status != 'ready' and due_at
// in the past, optionally scoped to one specialist.
func (r *ticketRepository) ListOverdue(ctx context.Context, now time.Time, assigneeID *int64) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
              WHERE status <> 'ready' AND due_at IS NOT NULL AND due_at < $1`
	args := []any{now}
	if assigneeID != nil {
		args = append(args, *assigneeID)
		query += ` AND assigned_specialist_id = $2`
	}
	query += ` ORDER BY due_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.RequestNumber,
			&ticket.Status,
			&ticket.ClientID,
			&ticket.ApplianceID,
			&ticket.IssueTypeID,
			&ticket.ProblemDescription,
			&ticket.AssignedSpecialistID,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.DueAt,
			&ticket.StartedAt,
			&ticket.CompletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
