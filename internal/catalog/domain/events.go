package domain

import (
	"time"

	sharedDomain "github.com/foodthrift/paysmallsmall/internal/shared/domain"
)

const aggregateType = "Plan"

// Routing keys.
const (
	RoutingKeyPlanAdded    = "catalog.plan.added"
	RoutingKeyPlanArchived = "catalog.plan.archived"
)

// PlanAdded is emitted when an administrator adds a plan.
type PlanAdded struct {
	sharedDomain.BaseEvent
	PlanID    string    `json:"plan_id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Amount    int64     `json:"amount"`
	Frequency Frequency `json:"frequency"`
}

// NewPlanAdded creates a PlanAdded event.
func NewPlanAdded(p Plan, at time.Time) *PlanAdded {
	return &PlanAdded{
		BaseEvent: sharedDomain.NewBaseEvent(p.ID, aggregateType, RoutingKeyPlanAdded, at),
		PlanID:    p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Amount:    p.Amount,
		Frequency: p.Frequency,
	}
}

// PlanArchived is emitted when a plan leaves the active catalog.
type PlanArchived struct {
	sharedDomain.BaseEvent
	PlanID string `json:"plan_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// NewPlanArchived creates a PlanArchived event.
func NewPlanArchived(p Plan, at time.Time) *PlanArchived {
	return &PlanArchived{
		BaseEvent: sharedDomain.NewBaseEvent(p.ID, aggregateType, RoutingKeyPlanArchived, at),
		PlanID:    p.ID,
		Name:      p.Name,
		Reason:    p.DeactivationReason,
	}
}
