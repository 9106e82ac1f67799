package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// IssueTypeRepository encapsulates issue-type persistence.
type IssueTypeRepository interface {
	Create(ctx context.Context, issueType *domain.IssueType) error
	GetByName(ctx context.Context, name string) (*domain.IssueType, error)
	List(ctx context.Context) ([]domain.IssueType, error)
}

type issueTypeRepository struct {
	pool *pgxpool.Pool
}

// NewIssueTypeRepository instantiates repository.
func NewIssueTypeRepository(pool *pgxpool.Pool) IssueTypeRepository {
	return &issueTypeRepository{pool: pool}
}

func (r *issueTypeRepository) Create(ctx context.Context, issueType *domain.IssueType) error {
	const query = `INSERT INTO issue_types (name) VALUES ($1) RETURNING id`
	return r.pool.QueryRow(ctx, query, issueType.Name).Scan(&issueType.ID)
}

func (r *issueTypeRepository) GetByName(ctx context.Context, name string) (*domain.IssueType, error) {
	var issueType domain.IssueType
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM issue_types WHERE name=$1`, name,
	).Scan(&issueType.ID, &issueType.Name)
	if err != nil {
		return nil, err
	}
	return &issueType, nil
}

func (r *issueTypeRepository) List(ctx context.Context) ([]domain.IssueType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM issue_types ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueType
	for rows.Next() {
		var issueType domain.IssueType
		if err := rows.Scan(&issueType.ID, &issueType.Name); err != nil {
			return nil, err
		}
		result = append(result, issueType)
	}
	return result, rows.Err()
}
