// Package cli implements the repairctl maintenance commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/persistence"
)

// RootCmd returns the repairctl root command.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "repairctl",
		Short:         "Maintenance utilities for the repair ticket service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(ImportCmd())
	cmd.AddCommand(BackupCmd())
	cmd.AddCommand(SeedCmd())

	return cmd
}

// openEnv loads configuration, the logger and a postgres pool for a
// command run. The returned cleanup closes the pool and flushes logs.
func openEnv(ctx context.Context) (*config.Config, *zap.Logger, *persistence.Postgres, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Sync() //nolint:errcheck
		return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	cleanup := func() {
		pg.Close()
		logger.Sync() //nolint:errcheck
	}
	return cfg, logger, pg, cleanup, nil
}
