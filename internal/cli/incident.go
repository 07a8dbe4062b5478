package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/spf13/cobra"
)

var (
	updateStatus  string
	updateMessage string
	updateAuthor  string
)

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Manage incidents",
}

var incidentUpdateCmd = &cobra.Command{
	Use:   "update <incident-id>",
	Short: "Append a timeline update and move the incident to a new status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid incident id %q: %w", args[0], err)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		incident, err := a.engine().ApplyUpdate(cmd.Context(), id, types.IncidentStatus(updateStatus), updateMessage, updateAuthor)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), incident)
	},
}

func init() {
	incidentUpdateCmd.Flags().StringVar(&updateStatus, "status", "", "investigating, identified, monitoring or resolved")
	incidentUpdateCmd.Flags().StringVar(&updateMessage, "message", "", "update shown on the incident timeline")
	incidentUpdateCmd.Flags().StringVar(&updateAuthor, "author", "operator", "recorded as the update's author")
	_ = incidentUpdateCmd.MarkFlagRequired("status")
	_ = incidentUpdateCmd.MarkFlagRequired("message")

	incidentCmd.AddCommand(incidentUpdateCmd)
}
