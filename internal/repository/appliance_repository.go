package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// ApplianceRepository encapsulates appliance persistence. Appliances are
// deduplicated by the (type, model) pair.
type ApplianceRepository interface {
	Create(ctx context.Context, appliance *domain.Appliance) error
	GetByID(ctx context.Context, id int64) (*domain.Appliance, error)
	GetByTypeModel(ctx context.Context, applianceType, applianceModel string) (*domain.Appliance, error)
}

type applianceRepository struct {
	pool *pgxpool.Pool
}

// NewApplianceRepository instantiates repository.
func NewApplianceRepository(pool *pgxpool.Pool) ApplianceRepository {
	return &applianceRepository{pool: pool}
}

func (r *applianceRepository) Create(ctx context.Context, appliance *domain.Appliance) error {
	const query = `INSERT INTO appliances (appliance_type, appliance_model) VALUES ($1,$2) RETURNING id`
	return r.pool.QueryRow(ctx, query, appliance.ApplianceType, appliance.ApplianceModel).Scan(&appliance.ID)
}

func (r *applianceRepository) GetByID(ctx context.Context, id int64) (*domain.Appliance, error) {
	var appliance domain.Appliance
	err := r.pool.QueryRow(ctx,
		`SELECT id, appliance_type, appliance_model FROM appliances WHERE id=$1`, id,
	).Scan(&appliance.ID, &appliance.ApplianceType, &appliance.ApplianceModel)
	if err != nil {
		return nil, err
	}
	return &appliance, nil
}

func (r *applianceRepository) GetByTypeModel(ctx context.Context, applianceType, applianceModel string) (*domain.Appliance, error) {
	var appliance domain.Appliance
	err := r.pool.QueryRow(ctx,
		`SELECT id, appliance_type, appliance_model FROM appliances WHERE appliance_type=$1 AND appliance_model=$2`,
		applianceType, applianceModel,
	).Scan(&appliance.ID, &appliance.ApplianceType, &appliance.ApplianceModel)
	if err != nil {
		return nil, err
	}
	return &appliance, nil
}
