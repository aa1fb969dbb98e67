package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common savings workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("savings_review").
		Description("Review progress across all food savings plans and decide what to pay next.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Savings Review", `Help me review my food savings. Please:

1. Read my totals from the paysmall://summary resource
2. List my subscriptions from paysmall://subscriptions
3. Check what is due next with paysmall://status

Then:
- Tell me how far along each plan is and how much is left
- Flag any payment due within the next three days
- Suggest which installment to pay first if more than one is close

If I agree to pay, use the payments.pay tool.`), nil
		})

	srv.Prompt("payment_reminder").
		Description("Draft a friendly reminder for the next installment due.").
		Argument("tone", "Tone of the reminder (friendly, firm, brief)", false).
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			tone := args["tone"]
			if tone == "" {
				tone = "friendly"
			}
			return userPrompt("Payment Reminder", fmt.Sprintf(`Write a %s reminder for my next food savings installment.

Use the payments.status tool to find the plan, the amount and the countdown.
Mention the plan name, the amount in naira and how long is left.
Keep it under 60 words.`, tone)), nil
		})

	srv.Prompt("plan_briefing").
		Description("Administrator briefing on the catalog: categories, prices and gaps.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Catalog Briefing", `Prepare a briefing on the savings plan catalog.

1. Read the active plans from paysmall://plans
2. Read the retired plans from paysmall://plans/archived
3. Ask the advisory.briefing tool for a trend summary

Summarise which categories are well covered, which price points are missing,
and whether any archived plan is worth bringing back with plans.add.`), nil
		})

	return nil
}

func userPrompt(description, text string) *mcp.PromptResult {
	return &mcp.PromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: string(mcp.RoleUser),
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
