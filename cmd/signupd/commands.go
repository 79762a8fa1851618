package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"signupd/internal/config"
	"signupd/internal/infrastructure/logging"
)

var (
	storeKind     string
	rollbackSteps int

	cfg *config.Config
	log *logrus.Logger

	rootCmd = &cobra.Command{
		Use:           "signupd",
		Short:         "Event signup, capacity and waitlist service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			log, err = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			return err
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the sweeper, the notification sinks and the metrics endpoint",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE:  runMigrateUp,
	}
	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "Revert the last migrations",
		RunE:  runMigrateDown,
	}

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep (auto-complete, offer expiry, scheduled publication) and exit",
		RunE:  runSweep,
	}
)

func init() {
	serveCmd.Flags().StringVar(&storeKind, "store", "postgres", "store backend: postgres, or memory for a throwaway local run")
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "number of migrations to revert")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd)
}

func validateStoreKind(kind string) error {
	switch kind {
	case "postgres", "memory":
		return nil
	default:
		return fmt.Errorf("unknown store %q (want postgres or memory)", kind)
	}
}
