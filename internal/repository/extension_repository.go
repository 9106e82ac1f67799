package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ExtensionRepository stores deadline extensions.
type ExtensionRepository interface {
	Create(ctx context.Context, extension *domain.DeadlineExtension) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.DeadlineExtension, error)
}

type extensionRepository struct {
	pool *pgxpool.Pool
}

// NewExtensionRepository builds repository.
func NewExtensionRepository(pool *pgxpool.Pool) ExtensionRepository {
	return &extensionRepository{pool: pool}
}

func (r *extensionRepository) Create(ctx context.Context, extension *domain.DeadlineExtension) error {
	const query = `
        INSERT INTO deadline_extensions (ticket_id, old_due_at, new_due_at, reason, requested_by_user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		extension.TicketID,
		extension.OldDueAt,
		extension.NewDueAt,
		extension.Reason,
		extension.RequestedByUserID,
	).Scan(&extension.ID, &extension.CreatedAt)
}

func (r *extensionRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.DeadlineExtension, error) {
	const query = `
        SELECT id, ticket_id, old_due_at, new_due_at, reason, requested_by_user_id, created_at
        FROM deadline_extensions WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DeadlineExtension
	for rows.Next() {
		var extension domain.DeadlineExtension
		if err := rows.Scan(
			&extension.ID,
			&extension.TicketID,
			&extension.OldDueAt,
			&extension.NewDueAt,
			&extension.Reason,
			&extension.RequestedByUserID,
			&extension.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, extension)
	}
	return result, rows.Err()
}
