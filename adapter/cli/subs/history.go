package subs

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"txns", "transactions"},
	Short:   "Show your transaction history",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		txs, err := app.Ledger.Transactions(ctx, app.CurrentUser(ctx).ID)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(txs) == 0 {
			fmt.Fprintln(out, "No transactions yet.")
			return nil
		}
		if historyLimit > 0 && len(txs) > historyLimit {
			txs = txs[:historyLimit]
		}
		fmt.Fprintf(out, "%-18s %-17s %10s %-8s %-11s %s\n", "ID", "DATE", "AMOUNT", "STATUS", "PROVIDER", "PLAN")
		fmt.Fprintln(out, strings.Repeat("-", 84))
		for _, tx := range txs {
			fmt.Fprintf(out, "%-18s %-17s %10s %-8s %-11s %s\n",
				tx.ID, tx.Date.Format("2006-01-02 15:04"), cli.FormatAmount(tx.Amount), tx.Status, tx.Provider, tx.PlanName)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show at most n transactions")
}
