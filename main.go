// Command ulasan runs the product review site.
//
// Usage:
//
//	ulasan serve                 # start the HTTP server
//	ulasan migrate               # create or upgrade the database schema
//	ulasan user create --admin   # add a user from the command line
//
// Settings come from the environment or a .env file in the working
// directory; see internal/config for the keys.
package main

import (
	"fmt"
	"os"

	"ulasan/internal/config"
	"ulasan/internal/database"
	"ulasan/internal/observability"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ulasan",
		Short:         "Product review site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd(), newUserCmd())
	return rootCmd
}

// loadConfig reads the settings and installs the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.New())
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	return cfg, nil
}

// openDatabase connects and brings the schema up to date.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
