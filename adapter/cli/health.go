package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check storage and broker connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		report := app.Health.Check(cmd.Context())

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, report.Status)
		names := make([]string, 0, len(report.Checks))
		for name := range report.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r := report.Checks[name]
			fmt.Fprintf(out, "  %-10s %-9s %s\n", name, r.Status, r.Message)
		}
		if report.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
