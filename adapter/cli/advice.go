package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var adviceCmd = &cobra.Command{
	Use:   "advice",
	Short: "Get a savings tip",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		user := app.CurrentUser(ctx)

		summary, err := app.Ledger.Summary(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to summarise savings: %w", err)
		}
		prompt := fmt.Sprintf("User %s has %s in total food savings across %d plans.",
			user.Name, FormatAmount(summary.TotalSaved), summary.Active)

		fmt.Fprintln(cmd.OutOrStdout(), app.Advisory.FinancialAdvice(ctx, prompt))
		return nil
	},
}

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Summarise contribution trends across the catalog (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if _, err := app.RequireAdmin(ctx); err != nil {
			return err
		}
		plans, err := app.Catalog.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), app.Advisory.PlanBriefing(ctx, plans))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adviceCmd)
	rootCmd.AddCommand(briefingCmd)
}
