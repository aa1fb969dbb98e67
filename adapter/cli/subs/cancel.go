package subs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <subscription-id>",
	Short: "Cancel a subscription",
	Long: `Cancel an active subscription. Contributions already made stay in the
ledger.

Examples:
  paysmall subs cancel sub_1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		sub, err := app.Ledger.Cancel(ctx, app.CurrentUser(ctx).ID, args[0])
		if err != nil {
			return fmt.Errorf("failed to cancel subscription: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subscription %s cancelled.\n", sub.ID)
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <subscription-id>",
	Short: "Mark a subscription as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		sub, err := app.Ledger.Complete(ctx, app.CurrentUser(ctx).ID, args[0])
		if err != nil {
			return fmt.Errorf("failed to complete subscription: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subscription %s completed with %s saved.\n", sub.ID, cli.FormatAmount(sub.TotalPaid))
		return nil
	},
}
