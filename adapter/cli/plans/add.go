package plans

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	catalogApp "github.com/foodthrift/paysmallsmall/internal/catalog/application"
	"github.com/foodthrift/paysmallsmall/internal/catalog/domain"
)

var (
	addID          string
	addName        string
	addDescription string
	addCategory    string
	addSubcategory string
	addSlots       int
	addAmount      int64
	addFrequency   string
	addWeeks       int
	addImage       string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a plan to the catalog (admin)",
	Long: `Add a new food plan. The plan id is generated unless --id is given.

Examples:
  paysmall plans add --name "Beans (25kg)" --category Foodstuff --amount 4000 --weeks 8
  paysmall plans add --id plan_goat --name "Goat" --category Livestock --amount 12000 --frequency MONTHLY --weeks 24`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if _, err := app.RequireAdmin(cmd.Context()); err != nil {
			return err
		}

		category, err := domain.ParseCategory(addCategory)
		if err != nil {
			return fmt.Errorf("%w (one of: %s)", err, categoryNames())
		}
		frequency, err := domain.ParseFrequency(addFrequency)
		if err != nil {
			return err
		}

		plan, err := app.Catalog.AddPlan(cmd.Context(), catalogApp.AddPlanCommand{
			ID:              addID,
			Name:            addName,
			Description:     addDescription,
			Category:        category,
			Subcategory:     addSubcategory,
			NumberOfSlots:   addSlots,
			Amount:          addAmount,
			Frequency:       frequency,
			DurationInWeeks: addWeeks,
			ImageURL:        addImage,
		})
		if err != nil {
			return fmt.Errorf("failed to add plan: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Plan added!")
		fmt.Fprintln(out, strings.Repeat("-", 40))
		fmt.Fprintf(out, "  ID:       %s\n", plan.ID)
		fmt.Fprintf(out, "  Name:     %s\n", plan.Name)
		fmt.Fprintf(out, "  Category: %s\n", plan.Category)
		fmt.Fprintf(out, "  Amount:   %s %s\n", cli.FormatAmount(plan.Amount), strings.ToLower(string(plan.Frequency)))
		fmt.Fprintf(out, "  Target:   %s over %d weeks\n", cli.FormatAmount(plan.Target()), plan.DurationInWeeks)
		return nil
	},
}

func categoryNames() string {
	names := make([]string, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func init() {
	addCmd.Flags().StringVar(&addID, "id", "", "plan id (generated when empty)")
	addCmd.Flags().StringVarP(&addName, "name", "n", "", "plan name")
	addCmd.Flags().StringVar(&addDescription, "description", "", "plan description")
	addCmd.Flags().StringVar(&addCategory, "category", string(domain.CategoryFoodstuff), "plan category")
	addCmd.Flags().StringVar(&addSubcategory, "subcategory", "", "plan subcategory")
	addCmd.Flags().IntVar(&addSlots, "slots", 0, "number of slots")
	addCmd.Flags().Int64VarP(&addAmount, "amount", "a", 0, "installment amount in naira")
	addCmd.Flags().StringVarP(&addFrequency, "frequency", "f", string(domain.FrequencyWeekly), "WEEKLY or MONTHLY")
	addCmd.Flags().IntVarP(&addWeeks, "weeks", "w", 0, "duration in weeks")
	addCmd.Flags().StringVar(&addImage, "image", "", "image URL")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("amount")
	_ = addCmd.MarkFlagRequired("weeks")
}
