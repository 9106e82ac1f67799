package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// PartRepository stores spare parts recorded against tickets.
type PartRepository interface {
	Create(ctx context.Context, part *domain.TicketPart) error
	Delete(ctx context.Context, ticketID, partID int64) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketPart, error)
}

type partRepository struct {
	pool *pgxpool.Pool
}

// NewPartRepository builds repository.
func NewPartRepository(pool *pgxpool.Pool) PartRepository {
	return &partRepository{pool: pool}
}

func (r *partRepository) Create(ctx context.Context, part *domain.TicketPart) error {
	const query = `
        INSERT INTO ticket_parts (ticket_id, part_name, quantity)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		part.TicketID,
		part.PartName,
		part.Quantity,
	).Scan(&part.ID, &part.CreatedAt)
}

func (r *partRepository) Delete(ctx context.Context, ticketID, partID int64) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM ticket_parts WHERE id=$1 AND ticket_id=$2`, partID, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *partRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketPart, error) {
	const query = `
        SELECT id, ticket_id, part_name, quantity, created_at
        FROM ticket_parts WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketPart
	for rows.Next() {
		var part domain.TicketPart
		if err := rows.Scan(
			&part.ID,
			&part.TicketID,
			&part.PartName,
			&part.Quantity,
			&part.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, part)
	}
	return result, rows.Err()
}
