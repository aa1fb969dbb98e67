package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/settlement"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/internal/session"
)

// ErrCheckoutNotOpened is returned when the urgent subscription was found
// but no checkout picked it up.
var ErrCheckoutNotOpened = errors.New("checkout did not open")

// DueStatus scans the user's subscriptions once and returns the countdown
// to the one due first.
func (a *App) DueStatus(ctx context.Context, user session.User) (monitor.Snapshot, error) {
	if a.OpenUserSession == nil {
		return monitor.Snapshot{}, ErrNotInitialized
	}
	us, err := a.OpenUserSession(ctx, user)
	if err != nil {
		return monitor.Snapshot{}, err
	}
	defer us.Close()

	us.Monitor.Scan(ctx)
	return us.Monitor.Snapshot(), nil
}

// Pay settles one installment and blocks until the gateway answers. An
// empty subscriptionID pays the subscription due first. onOpen, when set,
// sees the checkout before the provider is selected.
func (a *App) Pay(ctx context.Context, user session.User, subscriptionID string, provider domain.Provider, onOpen func(settlement.Checkout)) (settlement.Checkout, error) {
	if a.OpenUserSession == nil {
		return settlement.Checkout{}, ErrNotInitialized
	}
	us, err := a.OpenUserSession(ctx, user)
	if err != nil {
		return settlement.Checkout{}, fmt.Errorf("start payment session: %w", err)
	}
	defer us.Close()

	if subscriptionID != "" {
		sub, err := a.Ledger.Subscription(ctx, user.ID, subscriptionID)
		if err != nil {
			return settlement.Checkout{}, err
		}
		if _, err := us.Settlement.Open(ctx, sub); err != nil {
			return settlement.Checkout{}, fmt.Errorf("open checkout: %w", err)
		}
	} else {
		us.Monitor.Scan(ctx)
		_, delivered, err := us.Monitor.RequestPayment(ctx)
		if err != nil {
			return settlement.Checkout{}, err
		}
		if !delivered {
			return settlement.Checkout{}, ErrCheckoutNotOpened
		}
	}

	checkout, ok := us.Settlement.Current()
	if !ok {
		return settlement.Checkout{}, settlement.ErrNoCheckout
	}
	if onOpen != nil {
		onOpen(checkout)
	}
	if _, err := us.Settlement.SelectProvider(ctx, provider); err != nil {
		return checkout, err
	}
	return us.Settlement.Wait(ctx)
}

// IsNothingDue reports whether err means no subscription is active.
func IsNothingDue(err error) bool {
	return errors.Is(err, monitor.ErrNothingDue)
}
