package cli

import (
	"fmt"

	"github.com/monocle-dev/statuswatch/db"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one health-check cycle and print its summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		dispatcher := a.dispatcher()
		defer dispatcher.Close()

		summary, err := a.runner(dispatcher, nil).RunCheck(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), summary)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete health checks older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner(nil, nil).RunSweep(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := db.MigrateDatabase(a.db.WithContext(cmd.Context())); err != nil {
			return err
		}
		a.log.Info("database migrated")
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}
