package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/spec-kit/repair-service/internal/importer"
	"github.com/spec-kit/repair-service/internal/repository"
)

// ImportCmd returns the CSV import command.
func ImportCmd() *cobra.Command {
	var (
		csvPath string
		actor   string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import tickets from a CSV file",
		Long: `Bulk-load tickets from a CSV file with the columns:

  appliance_type, appliance_model, issue_type, problem_description,
  client_name, client_phone, status, assigned_master_username, due_at

Clients are matched by phone, appliances by type and model, issue types
by name. Rows with missing required fields are skipped and reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, logger, pg, cleanup, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			pool := pg.PoolHandle()
			users := repository.NewUserRepository(pool)

			actorUser, err := users.GetByUsername(ctx, actor)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return fmt.Errorf("actor user %q not found", actor)
				}
				return fmt.Errorf("look up actor: %w", err)
			}

			f, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			imp := importer.New(importer.Dependencies{
				TicketRepo:    repository.NewTicketRepository(pool),
				ClientRepo:    repository.NewClientRepository(pool),
				ApplianceRepo: repository.NewApplianceRepository(pool),
				IssueTypeRepo: repository.NewIssueTypeRepository(pool),
				UserRepo:      users,
				HistoryRepo:   repository.NewStatusHistoryRepository(pool),
				AssigneeRepo:  repository.NewAssigneeRepository(pool),
				Logger:        logger,
			})

			result, err := imp.Run(ctx, f, actorUser.ID)
			if err != nil {
				return err
			}

			fmt.Printf("imported %d tickets, skipped %d rows\n", result.Imported, len(result.Skipped))
			for _, skipped := range result.Skipped {
				fmt.Printf("  line %d: %s\n", skipped.Line, skipped.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "path to the CSV file to import")
	cmd.Flags().StringVar(&actor, "actor", "admin", "username recorded as the author of imported tickets")
	cmd.MarkFlagRequired("csv") //nolint:errcheck

	return cmd
}
