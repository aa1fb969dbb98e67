package plans

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	catalogApp "github.com/foodthrift/paysmallsmall/internal/catalog/application"
)

var archiveReason string

var archiveCmd = &cobra.Command{
	Use:   "archive <plan-id>",
	Short: "Archive a plan (admin)",
	Long: `Move a plan from the catalog to the archive. Archived plans are never
deleted and keep their id reserved. Archiving an already archived or unknown
plan changes nothing.

Examples:
  paysmall plans archive plan_2
  paysmall plans archive plan_2 --reason "Out of season"`,
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if _, err := app.RequireAdmin(cmd.Context()); err != nil {
			return err
		}

		plan, found, err := app.Catalog.ArchivePlan(cmd.Context(), args[0], archiveReason)
		if err != nil {
			return fmt.Errorf("failed to archive plan: %w", err)
		}

		out := cmd.OutOrStdout()
		if !found {
			fmt.Fprintf(out, "No active plan %s; nothing archived.\n", args[0])
			return nil
		}
		fmt.Fprintf(out, "Archived %s (%s): %s\n", plan.ID, plan.Name, plan.DeactivationReason)
		return nil
	},
}

func init() {
	archiveCmd.Flags().StringVarP(&archiveReason, "reason", "r", catalogApp.DefaultArchiveReason, "deactivation reason")
}
