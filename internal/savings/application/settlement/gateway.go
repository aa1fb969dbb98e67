package settlement

import (
	"context"
	"time"

	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

// DefaultLatency is how long the simulated gateway takes to authorize.
const DefaultLatency = 2500 * time.Millisecond

// ChargeRequest is one installment to collect.
type ChargeRequest struct {
	UserID         string
	SubscriptionID string
	Provider       domain.Provider
	Amount         int64
}

// Gateway collects a payment through a provider.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) error
}

// SimulatedGateway approves every charge after a fixed latency. No money
// moves.
type SimulatedGateway struct {
	Latency time.Duration
}

// NewSimulatedGateway creates a gateway with the given latency; zero or
// negative latencies approve immediately.
func NewSimulatedGateway(latency time.Duration) *SimulatedGateway {
	return &SimulatedGateway{Latency: latency}
}

// Charge waits out the latency. It fails only if ctx ends first.
func (g *SimulatedGateway) Charge(ctx context.Context, _ ChargeRequest) error {
	if g.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GatewayFunc adapts a function into a Gateway.
type GatewayFunc func(ctx context.Context, req ChargeRequest) error

func (f GatewayFunc) Charge(ctx context.Context, req ChargeRequest) error {
	return f(ctx, req)
}
