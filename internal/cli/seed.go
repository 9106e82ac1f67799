package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/repair-service/internal/persistence"
)

// SeedCmd returns the command that seeds default users and issue types.
func SeedCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default users and issue types",
		Long: `Insert the built-in users (admin, operator, master, manager) and the
standard issue type catalogue. Existing rows are left untouched, so the
command is safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, pg, cleanup, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			pool := pg.PoolHandle()

			if migrate {
				if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
			}

			if err := persistence.SeedDefaults(ctx, pool, cfg.Auth, logger); err != nil {
				return fmt.Errorf("seed defaults: %w", err)
			}

			fmt.Println("defaults seeded")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before seeding")

	return cmd
}
