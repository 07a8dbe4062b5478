package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/monocle-dev/statuswatch/internal/policy"
	"github.com/monocle-dev/statuswatch/internal/types"
	"github.com/spf13/cobra"
)

var (
	planInterval int
	planChannel  string
)

var planCmd = &cobra.Command{
	Use:   "plan <account-id>",
	Short: "Show an account's plan limits and validate a monitor interval or channel type against them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid account id %q: %w", args[0], err)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return describePlan(cmd, policy.NewProvider(a.store), accountID)
	},
}

func describePlan(cmd *cobra.Command, checker policy.Checker, accountID uuid.UUID) error {
	ctx := cmd.Context()

	plan, limits, err := checker.Limits(ctx, accountID)
	if err != nil {
		return err
	}
	if planInterval > 0 {
		if err := checker.CheckInterval(ctx, accountID, planInterval); err != nil {
			return err
		}
	}
	if planChannel != "" {
		if err := checker.ChannelAllowed(ctx, accountID, types.ChannelType(planChannel)); err != nil {
			return err
		}
	}

	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"plan":   plan,
		"limits": limits,
	})
}

func init() {
	planCmd.Flags().IntVar(&planInterval, "interval", 0, "check interval in seconds to validate")
	planCmd.Flags().StringVar(&planChannel, "channel", "", "channel type to validate (chat, webhook, sms)")
}
