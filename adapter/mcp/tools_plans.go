package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	catalogApp "github.com/foodthrift/paysmallsmall/internal/catalog/application"
	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
)

type planListInput struct {
	Archived bool `json:"archived,omitempty"`
}

type planAddInput struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name" jsonschema:"required"`
	Description     string `json:"description,omitempty"`
	Category        string `json:"category,omitempty"`
	Subcategory     string `json:"subcategory,omitempty"`
	NumberOfSlots   int    `json:"number_of_slots,omitempty"`
	Amount          int64  `json:"amount" jsonschema:"required"`
	Frequency       string `json:"frequency,omitempty"`
	DurationInWeeks int    `json:"duration_in_weeks" jsonschema:"required"`
	ImageURL        string `json:"image_url,omitempty"`
}

type planArchiveInput struct {
	ID     string `json:"id" jsonschema:"required"`
	Reason string `json:"reason,omitempty"`
}

func registerPlanTools(srv *mcp.Server, t *toolset) {
	srv.Tool("plans.list").
		Description("List savings plans in the catalog, or the archived ones").
		Handler(t.listPlans)

	srv.Tool("plans.add").
		Description("Add a savings plan to the catalog (administrator only)").
		Handler(t.addPlan)

	srv.Tool("plans.archive").
		Description("Retire a plan from the catalog (administrator only)").
		Handler(t.archivePlan)
}

func (t *toolset) listPlans(ctx context.Context, input planListInput) ([]catalogDomain.Plan, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if input.Archived {
		return t.app.Catalog.ListArchived(ctx)
	}
	return t.app.Catalog.List(ctx)
}

func (t *toolset) addPlan(ctx context.Context, input planAddInput) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if _, err := t.app.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	category := catalogDomain.CategoryFoodstuff
	if input.Category != "" {
		c, err := catalogDomain.ParseCategory(input.Category)
		if err != nil {
			return nil, err
		}
		category = c
	}
	frequency := catalogDomain.FrequencyWeekly
	if input.Frequency != "" {
		f, err := catalogDomain.ParseFrequency(input.Frequency)
		if err != nil {
			return nil, err
		}
		frequency = f
	}

	plan, err := t.app.Catalog.AddPlan(ctx, catalogApp.AddPlanCommand{
		ID:              input.ID,
		Name:            input.Name,
		Description:     input.Description,
		Category:        category,
		Subcategory:     input.Subcategory,
		NumberOfSlots:   input.NumberOfSlots,
		Amount:          input.Amount,
		Frequency:       frequency,
		DurationInWeeks: input.DurationInWeeks,
		ImageURL:        input.ImageURL,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"plan":   plan,
		"target": plan.Target(),
	}, nil
}

func (t *toolset) archivePlan(ctx context.Context, input planArchiveInput) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if _, err := t.app.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if input.ID == "" {
		return nil, errors.New("id is required")
	}
	reason := input.Reason
	if reason == "" {
		reason = catalogApp.DefaultArchiveReason
	}
	plan, found, err := t.app.Catalog.ArchivePlan(ctx, input.ID, reason)
	if err != nil {
		return nil, err
	}
	if !found {
		return map[string]any{"archived": false, "id": input.ID}, nil
	}
	return map[string]any{"archived": true, "plan": plan}, nil
}
