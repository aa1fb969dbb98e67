// Package domain holds the food plan catalog model.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPlanNotFound is returned when a plan id is not in the active catalog.
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanExists is returned when adding a plan whose id is already taken.
	ErrPlanExists = errors.New("plan already exists")
	// ErrInvalidPlan wraps validation failures.
	ErrInvalidPlan = errors.New("invalid plan")
)

// Category is the closed set of plan categories.
type Category string

const (
	CategoryFoodstuff     Category = "Foodstuff"
	CategoryLivestock     Category = "Livestock"
	CategoryMeat          Category = "Meat"
	CategoryBundle        Category = "Bundle"
	CategoryOilsAndSpices Category = "Oils & Spices"
	CategorySharing       Category = "Sharing"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategoryFoodstuff,
		CategoryLivestock,
		CategoryMeat,
		CategoryBundle,
		CategoryOilsAndSpices,
		CategorySharing,
	}
}

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, error) {
	for _, known := range Categories() {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidPlan, s)
}

// Frequency is the contribution cadence of a plan.
type Frequency string

const (
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// IsValid reports whether f is a known cadence.
func (f Frequency) IsValid() bool {
	return f == FrequencyWeekly || f == FrequencyMonthly
}

// ParseFrequency accepts "weekly" or "monthly" in any case.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: unknown frequency %q", ErrInvalidPlan, s)
	}
	return f, nil
}

// Plan is a purchasable savings product. Amount is the per-installment
// contribution in naira.
type Plan struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	Category           Category  `json:"category"`
	Subcategory        string    `json:"subcategory,omitempty"`
	NumberOfSlots      int       `json:"numberOfSlots,omitempty"`
	Amount             int64     `json:"amount"`
	Frequency          Frequency `json:"frequency"`
	DurationInWeeks    int       `json:"durationInWeeks"`
	ImageURL           string    `json:"imageUrl"`
	DeactivationReason string    `json:"deactivationReason,omitempty"`
}

// Installments is the number of contributions needed to complete the plan:
// one per week for weekly plans, one per four weeks (rounded up) for monthly.
func (p Plan) Installments() int {
	if p.DurationInWeeks <= 0 {
		return 1
	}
	if p.Frequency == FrequencyMonthly {
		return (p.DurationInWeeks + 3) / 4
	}
	return p.DurationInWeeks
}

// Target is the full savings goal for one subscription to the plan.
func (p Plan) Target() int64 {
	return p.Amount * int64(p.Installments())
}

// Archived returns a copy of p marked with the deactivation reason.
func (p Plan) Archived(reason string) Plan {
	p.DeactivationReason = reason
	return p
}
