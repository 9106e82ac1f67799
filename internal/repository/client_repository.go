package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ClientRepository encapsulates client persistence. Clients are deduplicated
// by phone number.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Client, error)
	UpdateName(ctx context.Context, id int64, fullName string) error
}

type clientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository instantiates repository.
func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `INSERT INTO clients (full_name, phone) VALUES ($1,$2) RETURNING id`
	return r.pool.QueryRow(ctx, query, client.FullName, client.Phone).Scan(&client.ID)
}

func (r *clientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	var client domain.Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, phone FROM clients WHERE id=$1`, id,
	).Scan(&client.ID, &client.FullName, &client.Phone)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) GetByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	var client domain.Client
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, phone FROM clients WHERE phone=$1`, phone,
	).Scan(&client.ID, &client.FullName, &client.Phone)
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) UpdateName(ctx context.Context, id int64, fullName string) error {
	_, err := r.pool.Exec(ctx, `UPDATE clients SET full_name=$1 WHERE id=$2`, fullName, id)
	return err
}
