package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// StatusHistoryRepository stores the append-only status audit log. There is
// deliberately no update or delete: rows only disappear through the ticket
// cascade.
type StatusHistoryRepository interface {
	Append(ctx context.Context, change *domain.StatusChange) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusChange, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) Append(ctx context.Context, change *domain.StatusChange) error {
	const query = `
        INSERT INTO status_history (ticket_id, old_status, new_status, changed_by_user_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, changed_at`
	return r.pool.QueryRow(ctx, query,
		change.TicketID,
		change.OldStatus,
		change.NewStatus,
		change.ChangedByUserID,
	).Scan(&change.ID, &change.ChangedAt)
}

func (r *statusHistoryRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.StatusChange, error) {
	const query = `
        SELECT id, ticket_id, old_status, new_status, changed_by_user_id, changed_at
        FROM status_history WHERE ticket_id=$1 ORDER BY changed_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID,
			&change.TicketID,
			&change.OldStatus,
			&change.NewStatus,
			&change.ChangedByUserID,
			&change.ChangedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
