// Command mmsd runs the MMS generator backend.
//
//	mmsd serve     start the HTTP server
//	mmsd migrate   create or update the database schema and exit
//	mmsd purge     delete expired replay records and one-time codes
//
// Configuration comes from the environment (see internal/config). A .env
// file in the working directory is loaded first when present.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-mms-backend/internal/config"
	"github.com/tbourn/go-mms-backend/internal/repo"
	"github.com/tbourn/go-mms-backend/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "mmsd",
		Short:         "MMS generator backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newPurgeCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "mmsd:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)
	return cfg, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if err := repo.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
			return nil
		},
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired replay records and one-time codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := repo.Open(cfg.DBDriver, cfg.DBPath, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			return purge(cmd.Context(), db, time.Now().UTC())
		},
	}
}

// purge removes replay records past their expiry and codes that expired or
// were used before now.
func purge(ctx context.Context, db *gorm.DB, now time.Time) error {
	replays, err := repo.NewReplays(db, 0).Purge(ctx)
	if err != nil {
		return fmt.Errorf("purge replays: %w", err)
	}
	codes, err := repo.PurgeOTP(ctx, db, now)
	if err != nil {
		return fmt.Errorf("purge codes: %w", err)
	}
	log.Info().Int64("replays", replays).Int64("codes", codes).Msg("purge done")
	return nil
}
