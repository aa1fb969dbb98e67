package subs

import (
	"github.com/spf13/cobra"
)

// Cmd is the subscription command group
var Cmd = &cobra.Command{
	Use:     "subs",
	Aliases: []string{"subscriptions", "sub"},
	Short:   "Manage your savings subscriptions",
	Long:    `Enroll in plans, review your progress and transaction history, and cancel or complete subscriptions.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(enrollCmd)
	Cmd.AddCommand(cancelCmd)
	Cmd.AddCommand(completeCmd)
	Cmd.AddCommand(historyCmd)
}
