package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/internal/savings/application/settlement"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

var payProvider string

var payCmd = &cobra.Command{
	Use:   "pay [subscription-id]",
	Short: "Pay the next installment",
	Long: `Pay one installment through the simulated checkout. Without an id the
subscription due first is paid, the same one the countdown banner shows.

Examples:
  paysmall pay
  paysmall pay sub_2 --provider Flutterwave`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		provider, err := domain.ParseProvider(payProvider)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		user := app.CurrentUser(ctx)

		subscriptionID := ""
		if len(args) == 1 {
			subscriptionID = args[0]
		}
		checkout, err := app.Pay(ctx, user, subscriptionID, provider, func(c settlement.Checkout) {
			fmt.Fprintf(out, "Paying %s toward %s (%s) with %s...\n",
				FormatAmount(c.Amount), c.Plan.Name, c.Subscription.ID, provider)
		})
		if IsNothingDue(err) {
			fmt.Fprintln(out, "Nothing due: no active subscriptions.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("payment failed: %w", err)
		}
		if checkout.Step != settlement.StepSuccess {
			return fmt.Errorf("payment failed: %s", checkout.Error)
		}

		tx := checkout.Transaction
		fmt.Fprintln(out, "Payment successful.")
		fmt.Fprintf(out, "  reference: %s\n", tx.Ref)
		fmt.Fprintf(out, "  amount:    %s\n", FormatAmount(tx.Amount))
		fmt.Fprintf(out, "  date:      %s\n", tx.Date.Format("2006-01-02 15:04"))

		if sub, err := app.Ledger.Subscription(ctx, user.ID, checkout.Subscription.ID); err == nil {
			fmt.Fprintf(out, "  saved:     %s of %s\n", FormatAmount(sub.TotalPaid), FormatAmount(sub.TotalTarget))
			fmt.Fprintf(out, "  next due:  %s\n", sub.NextPaymentDate.Format("Mon 2 Jan 2006 15:04"))
		}
		return nil
	},
}

func init() {
	payCmd.Flags().StringVarP(&payProvider, "provider", "p", string(domain.ProviderPaystack), "payment provider (Paystack or Flutterwave)")
	rootCmd.AddCommand(payCmd)
}
