package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runSweep runs a single sweep against PostgreSQL, for cron-style deployments.
// Notifications are delivered before the command returns.
func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg, "postgres", false, log)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.sweeper.Sweep(cmd.Context())
	log.WithFields(logrus.Fields{
		"completed": report.Completed,
		"expired":   report.Expired,
		"promoted":  report.Promoted,
		"published": report.Published,
		"failed":    report.Failed,
	}).Info("sweep report")
	return err
}
