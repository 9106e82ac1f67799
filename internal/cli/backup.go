package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/repair-service/internal/backup"
)

// BackupCmd returns the database dump command.
func BackupCmd() *cobra.Command {
	var (
		outDir        string
		includeSchema bool
		schemaDir     string
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump the database to a timestamped SQL file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, logger, pg, cleanup, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			path, err := backup.Run(ctx, pg.PoolHandle(), backup.Options{
				OutDir:        outDir,
				IncludeSchema: includeSchema,
				SchemaDir:     schemaDir,
			}, logger)
			if err != nil {
				return err
			}

			fmt.Printf("backup written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "backups", "directory to write the dump file to")
	cmd.Flags().BoolVar(&includeSchema, "schema", false, "prepend the schema DDL to the dump")
	cmd.Flags().StringVar(&schemaDir, "schema-dir", "migrations", "directory holding the schema SQL files")

	return cmd
}
