package main

import (
	"github.com/spf13/cobra"

	"signupd/internal/infrastructure/database"
)

func runMigrateUp(cmd *cobra.Command, args []string) error {
	return database.RunMigrations(cfg.DatabaseURL, log)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	return database.RollbackMigrations(cfg.DatabaseURL, rollbackSteps, log)
}
