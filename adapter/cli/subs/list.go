package subs

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your subscriptions",
	Long: `List your subscriptions with progress toward each target.

Examples:
  paysmall subs list
  paysmall subs list --all   # include cancelled and completed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		user := app.CurrentUser(ctx)

		subs, err := app.Ledger.ListActive(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list subscriptions: %w", err)
		}
		summary, err := app.Ledger.Summary(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to summarise savings: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total saved: %s of %s\n", cli.FormatAmount(summary.TotalSaved), cli.FormatAmount(summary.TotalTarget))
		fmt.Fprintln(out, strings.Repeat("-", 72))

		shown := 0
		for _, s := range subs {
			if !listAll && !s.IsActive() {
				continue
			}
			shown++
			plan := app.Catalog.Resolve(ctx, s.PlanID)
			fmt.Fprintf(out, "%s  %s  [%s]\n", s.ID, plan.Name, s.Status)
			fmt.Fprintf(out, "  %s %3.0f%%  %s / %s\n",
				cli.ProgressBar(s.Progress(), 20), s.Progress()*100,
				cli.FormatAmount(s.TotalPaid), cli.FormatAmount(s.TotalTarget))
			if s.IsActive() {
				fmt.Fprintf(out, "  next payment: %s\n", s.NextPaymentDate.Format("Mon 2 Jan 2006 15:04"))
			}
		}
		if shown == 0 {
			fmt.Fprintln(out, "No subscriptions. Enroll with: paysmall subs enroll <plan-id>")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "include cancelled and completed subscriptions")
}
