package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export your savings ledger to Excel",
	Long: `Write your subscriptions and transactions to an XLSX workbook.

Examples:
  paysmall export                       # paysmall_<user>_<timestamp>.xlsx
  paysmall export -o savings.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		user := app.CurrentUser(ctx)

		data, err := export.Collect(ctx, app.Ledger, app.Catalog, user.ID)
		if err != nil {
			return fmt.Errorf("failed to gather ledger: %w", err)
		}

		path := exportOutput
		if path == "" {
			path = export.FileName(user.ID, time.Now())
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		if err := export.Write(f, data); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d subscriptions and %d transactions to %s\n",
			len(data.Subscriptions), len(data.Transactions), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "output file")
	rootCmd.AddCommand(exportCmd)
}
