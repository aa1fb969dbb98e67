package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/internal/catalog/application"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the subscription due next",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		snap, err := app.DueStatus(ctx, app.CurrentUser(ctx))
		if err != nil {
			return err
		}
		printBanner(ctx, cmd.OutOrStdout(), app.Catalog, snap, false)
		return nil
	},
}

var watchFor time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the payment countdown",
	Long: `Print the countdown to the next installment every second. The banner
turns urgent when the payment is due within the urgency window.

Examples:
  paysmall watch
  paysmall watch --for 30s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if watchFor > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchFor)
			defer cancel()
		}

		us, err := app.OpenUserSession(ctx, app.CurrentUser(ctx))
		if err != nil {
			return err
		}
		defer us.Close()

		out := cmd.OutOrStdout()
		snaps := make(chan monitor.Snapshot, 1)
		unwatch := us.Monitor.Watch(func(s monitor.Snapshot) {
			select {
			case snaps <- s:
			default:
			}
		})
		defer unwatch()

		for {
			select {
			case <-ctx.Done():
				return nil
			case s := <-snaps:
				printBanner(ctx, out, app.Catalog, s, true)
			}
		}
	},
}

func printBanner(ctx context.Context, out io.Writer, plans *application.Service, s monitor.Snapshot, compact bool) {
	if s.Urgent == nil {
		fmt.Fprintln(out, "No active subscriptions.")
		return
	}
	plan := plans.Resolve(ctx, s.Urgent.PlanID)
	label := "Next payment"
	if s.Imminent {
		label = "PAYMENT DUE SOON"
	}
	if compact {
		fmt.Fprintf(out, "%s: %s %s in %s\n", label, plan.Name, FormatAmount(plan.Amount), FormatRemaining(s.Remaining))
		return
	}
	fmt.Fprintln(out, label)
	fmt.Fprintf(out, "  plan:      %s (%s)\n", plan.Name, s.Urgent.ID)
	fmt.Fprintf(out, "  amount:    %s\n", FormatAmount(plan.Amount))
	fmt.Fprintf(out, "  due:       %s\n", s.Urgent.NextPaymentDate.Format("Mon 2 Jan 2006 15:04"))
	fmt.Fprintf(out, "  countdown: %s\n", FormatRemaining(s.Remaining))
	if s.Imminent {
		fmt.Fprintln(out, "Pay now with: paysmall pay")
	}
}

func init() {
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "stop after this long (default: until interrupted)")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}
