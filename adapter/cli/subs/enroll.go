package subs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <plan-id>",
	Short: "Start saving toward a plan",
	Long: `Enroll in an active plan. The first installment falls due one week
from now.

Examples:
  paysmall subs enroll plan_3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		plan, err := app.Catalog.Lookup(ctx, args[0])
		if err != nil {
			return fmt.Errorf("cannot enroll: %w", err)
		}
		user := app.CurrentUser(ctx)
		sub, err := app.Ledger.Enroll(ctx, user.ID, plan)
		if err != nil {
			return fmt.Errorf("failed to enroll: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Enrolled in %s (%s)\n", plan.Name, sub.ID)
		fmt.Fprintf(out, "  target:        %s\n", cli.FormatAmount(sub.TotalTarget))
		fmt.Fprintf(out, "  installment:   %s\n", cli.FormatAmount(plan.Amount))
		fmt.Fprintf(out, "  first payment: %s\n", sub.NextPaymentDate.Format("Mon 2 Jan 2006 15:04"))
		return nil
	},
}
