package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
)

// defaultIssueTypes are pre-created classifications offered on the ticket form.
var defaultIssueTypes = []string{
	"Electrical",
	"Mechanical",
	"Leak/water",
	"Overheating",
	"Noise/vibration",
	"Other",
}

type defaultUser struct {
	username string
	role     domain.Role
	fullName string
}

// defaultUsers are bootstrap accounts, one per role. The password equals the
// username and is expected to be rotated on first login in any real deployment.
var defaultUsers = []defaultUser{
	{username: "admin", role: domain.RoleAdmin, fullName: "Administrator"},
	{username: "operator", role: domain.RoleOperator, fullName: "Front-desk operator"},
	{username: "master", role: domain.RoleMaster, fullName: "Repair master"},
	{username: "manager", role: domain.RoleManager, fullName: "Quality manager"},
}

// SeedDefaults idempotently inserts the default users and issue types.
func SeedDefaults(ctx context.Context, pool *pgxpool.Pool, authCfg config.AuthConfig, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping seed")
		return nil
	}

	for _, name := range defaultIssueTypes {
		if _, err := pool.Exec(ctx,
			`INSERT INTO issue_types (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("seed issue type %q: %w", name, err)
		}
	}

	for _, u := range defaultUsers {
		hash, err := auth.HashPassword(u.username, authCfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("hash seed password for %q: %w", u.username, err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO users (username, password_hash, role, full_name, is_active)
             VALUES ($1, $2, $3, $4, TRUE)
             ON CONFLICT (username) DO NOTHING`,
			u.username, hash, u.role, u.fullName); err != nil {
			return fmt.Errorf("seed user %q: %w", u.username, err)
		}
	}

	logger.Info("seeded default users and issue types",
		zap.Int("users", len(defaultUsers)),
		zap.Int("issue_types", len(defaultIssueTypes)))
	return nil
}
