// Package domain holds the savings ledger model: subscriptions, their
// contribution transactions and the payment-due countdown.
package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSubscriptionNotFound is returned when a subscription id is not in
	// the user's ledger.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrSubscriptionNotActive is returned when settling or cancelling a
	// subscription that already reached a terminal state.
	ErrSubscriptionNotActive = errors.New("subscription not active")
	// ErrInvalidTransition is returned for a status change the lifecycle
	// does not allow.
	ErrInvalidTransition = errors.New("invalid subscription status transition")
)

// PaymentIntervalDays is how many calendar days a settlement pushes the
// next due date. It does not depend on the plan cadence.
const PaymentIntervalDays = 7

// NextDueDate returns t moved PaymentIntervalDays calendar days forward in
// t's own location, keeping the wall-clock time across DST changes.
func NextDueDate(t time.Time) time.Time {
	return t.AddDate(0, 0, PaymentIntervalDays)
}

// StartDateLayout is the calendar-date format of Subscription.StartDate.
const StartDateLayout = "2006-01-02"

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Subscription is one user's enrollment in a plan.
type Subscription struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	PlanID          string    `json:"planId"`
	StartDate       string    `json:"startDate"`
	NextPaymentDate time.Time `json:"nextPaymentDate"`
	TotalPaid       int64     `json:"totalPaid"`
	TotalTarget     int64     `json:"totalTarget"`
	Status          Status    `json:"status"`
}

// IsActive reports whether the subscription still accepts payments.
func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// Progress is TotalPaid as a fraction of TotalTarget, capped at 1.
func (s Subscription) Progress() float64 {
	if s.TotalTarget <= 0 {
		return 0
	}
	p := float64(s.TotalPaid) / float64(s.TotalTarget)
	if p > 1 {
		return 1
	}
	return p
}

// Remaining is what is left to reach the target; never negative.
func (s Subscription) Remaining() int64 {
	if s.TotalPaid >= s.TotalTarget {
		return 0
	}
	return s.TotalTarget - s.TotalPaid
}

// ApplyPayment credits amount and moves the due date one interval forward.
// Nothing else changes; in particular reaching the target does not complete
// the subscription.
func (s *Subscription) ApplyPayment(amount int64) error {
	if !s.IsActive() {
		return fmt.Errorf("%w: %s is %s", ErrSubscriptionNotActive, s.ID, s.Status)
	}
	s.TotalPaid += amount
	s.NextPaymentDate = NextDueDate(s.NextPaymentDate)
	return nil
}

// TransitionTo changes the status when the lifecycle allows it.
func (s *Subscription) TransitionTo(next Status) error {
	if !s.Status.CanTransitionTo(next) {
		if s.Status.IsTerminal() {
			return fmt.Errorf("%w: %s is %s", ErrSubscriptionNotActive, s.ID, s.Status)
		}
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, s.Status, next)
	}
	s.Status = next
	return nil
}

// DefaultSubscription is the demo enrollment given to a user with no stored
// ledger: plan_1, due in two days at 14:00 local time, 45000 of 60000 paid.
func DefaultSubscription(userID string, now time.Time) Subscription {
	due := time.Date(now.Year(), now.Month(), now.Day()+2, 14, 0, 0, 0, now.Location())
	return Subscription{
		ID:              "sub_1",
		UserID:          userID,
		PlanID:          "plan_1",
		StartDate:       "2024-01-01",
		NextPaymentDate: due,
		TotalPaid:       45000,
		TotalTarget:     60000,
		Status:          StatusActive,
	}
}
