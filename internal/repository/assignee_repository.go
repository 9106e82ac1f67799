package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// AssigneeRepository stores the specialist links for tickets.
type AssigneeRepository interface {
	Upsert(ctx context.Context, assignee *domain.TicketAssignee) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAssignee, error)
}

type assigneeRepository struct {
	pool *pgxpool.Pool
}

// NewAssigneeRepository builds repository.
func NewAssigneeRepository(pool *pgxpool.Pool) AssigneeRepository {
	return &assigneeRepository{pool: pool}
}

func (r *assigneeRepository) Upsert(ctx context.Context, assignee *domain.TicketAssignee) error {
	const query = `
        INSERT INTO ticket_assignees (ticket_id, user_id, role, assigned_by_user_id)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (ticket_id, user_id) DO UPDATE
            SET role = EXCLUDED.role, assigned_by_user_id = EXCLUDED.assigned_by_user_id, assigned_at = NOW()
        RETURNING assigned_at`
	return r.pool.QueryRow(ctx, query,
		assignee.TicketID,
		assignee.UserID,
		assignee.Role,
		assignee.AssignedByUserID,
	).Scan(&assignee.AssignedAt)
}

func (r *assigneeRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketAssignee, error) {
	const query = `
        SELECT ticket_id, user_id, role, assigned_by_user_id, assigned_at
        FROM ticket_assignees WHERE ticket_id=$1 ORDER BY assigned_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAssignee
	for rows.Next() {
		var assignee domain.TicketAssignee
		if err := rows.Scan(
			&assignee.TicketID,
			&assignee.UserID,
			&assignee.Role,
			&assignee.AssignedByUserID,
			&assignee.AssignedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, assignee)
	}
	return result, rows.Err()
}
