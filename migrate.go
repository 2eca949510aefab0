package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create and/or upgrade the database schema",
		Long: `Create and/or upgrade the database schema.

The users and reviews tables are created or altered to match the
current models. The serve command does the same on startup.

Example:
  DATABASE_DRIVER=postgres DATABASE_DSN="host=localhost user=ulasan" ulasan migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := openDatabase(cfg); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DatabaseDriver).Msg("database migrated")
			fmt.Fprintln(cmd.OutOrStdout(), "Migration complete")
			return nil
		},
	}
}
