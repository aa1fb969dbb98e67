package plans

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	"github.com/foodthrift/paysmallsmall/internal/catalog/domain"
)

var listArchived bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List food plans",
	Long: `List the active plan catalog.

Examples:
  paysmall plans list
  paysmall plans list --archived`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		var plans []domain.Plan
		if listArchived {
			plans, err = app.Catalog.ListArchived(cmd.Context())
		} else {
			plans, err = app.Catalog.List(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(plans) == 0 {
			fmt.Fprintln(out, "No plans found.")
			return nil
		}

		fmt.Fprintf(out, "%-22s %-28s %-14s %10s %-8s %6s\n", "ID", "NAME", "CATEGORY", "AMOUNT", "CADENCE", "WEEKS")
		fmt.Fprintln(out, strings.Repeat("-", 94))
		for _, p := range plans {
			fmt.Fprintf(out, "%-22s %-28s %-14s %10s %-8s %6d\n",
				p.ID, truncate(p.Name, 28), p.Category, cli.FormatAmount(p.Amount), p.Frequency, p.DurationInWeeks)
			if listArchived && p.DeactivationReason != "" {
				fmt.Fprintf(out, "  archived: %s\n", p.DeactivationReason)
			}
		}
		return nil
	},
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func init() {
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "show archived plans")
}
