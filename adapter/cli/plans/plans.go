package plans

import (
	"github.com/spf13/cobra"
)

// Cmd is the plans command group
var Cmd = &cobra.Command{
	Use:     "plans",
	Aliases: []string{"plan", "catalog"},
	Short:   "Browse and manage food plans",
	Long:    `List the plan catalog and, as an administrator, add or archive plans.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(archiveCmd)
}
