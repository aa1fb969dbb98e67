package domain

import (
	"time"

	sharedDomain "github.com/foodthrift/paysmallsmall/internal/shared/domain"
)

const aggregateType = "Subscription"

// Routing keys.
const (
	RoutingKeyPaymentSettled        = "savings.payment.settled"
	RoutingKeySubscriptionEnrolled  = "savings.subscription.enrolled"
	RoutingKeySubscriptionCancelled = "savings.subscription.cancelled"
	RoutingKeySubscriptionCompleted = "savings.subscription.completed"
)

// PaymentSettled is emitted after a contribution is committed to the ledger.
type PaymentSettled struct {
	sharedDomain.BaseEvent
	SubscriptionID  string    `json:"subscription_id"`
	UserID          string    `json:"user_id"`
	TransactionID   string    `json:"transaction_id"`
	Ref             string    `json:"ref"`
	Provider        Provider  `json:"provider"`
	Amount          int64     `json:"amount"`
	TotalPaid       int64     `json:"total_paid"`
	NextPaymentDate time.Time `json:"next_payment_date"`
}

// NewPaymentSettled creates a PaymentSettled event.
func NewPaymentSettled(sub Subscription, tx LedgerTransaction) *PaymentSettled {
	return &PaymentSettled{
		BaseEvent:       sharedDomain.NewBaseEvent(sub.ID, aggregateType, RoutingKeyPaymentSettled, tx.Date),
		SubscriptionID:  sub.ID,
		UserID:          sub.UserID,
		TransactionID:   tx.ID,
		Ref:             tx.Ref,
		Provider:        tx.Provider,
		Amount:          tx.Amount,
		TotalPaid:       sub.TotalPaid,
		NextPaymentDate: sub.NextPaymentDate,
	}
}

// SubscriptionEnrolled is emitted when a user enrolls in a plan.
type SubscriptionEnrolled struct {
	sharedDomain.BaseEvent
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	PlanID         string `json:"plan_id"`
	TotalTarget    int64  `json:"total_target"`
}

// NewSubscriptionEnrolled creates a SubscriptionEnrolled event.
func NewSubscriptionEnrolled(sub Subscription, at time.Time) *SubscriptionEnrolled {
	return &SubscriptionEnrolled{
		BaseEvent:      sharedDomain.NewBaseEvent(sub.ID, aggregateType, RoutingKeySubscriptionEnrolled, at),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         sub.PlanID,
		TotalTarget:    sub.TotalTarget,
	}
}

// SubscriptionStatusChanged is emitted when a subscription is cancelled or
// completed.
type SubscriptionStatusChanged struct {
	sharedDomain.BaseEvent
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	Status         Status `json:"status"`
}

// NewSubscriptionStatusChanged creates the event matching sub's new status.
func NewSubscriptionStatusChanged(sub Subscription, at time.Time) *SubscriptionStatusChanged {
	key := RoutingKeySubscriptionCancelled
	if sub.Status == StatusCompleted {
		key = RoutingKeySubscriptionCompleted
	}
	return &SubscriptionStatusChanged{
		BaseEvent:      sharedDomain.NewBaseEvent(sub.ID, aggregateType, key, at),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Status:         sub.Status,
	}
}
