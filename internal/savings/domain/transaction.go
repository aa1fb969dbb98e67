package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider is a payment gateway offered at checkout.
type Provider string

const (
	ProviderPaystack    Provider = "Paystack"
	ProviderFlutterwave Provider = "Flutterwave"
)

// Providers lists the gateways in the order they are offered.
func Providers() []Provider {
	return []Provider{ProviderPaystack, ProviderFlutterwave}
}

// IsValid reports whether p is an offered gateway.
func (p Provider) IsValid() bool {
	return p == ProviderPaystack || p == ProviderFlutterwave
}

// ParseProvider matches s case-insensitively.
func ParseProvider(s string) (Provider, error) {
	for _, p := range Providers() {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown payment provider %q", s)
}

// RefPrefix is the first three letters of the provider, upper-cased.
func (p Provider) RefPrefix() string {
	name := strings.ToUpper(string(p))
	if len(name) > 3 {
		return name[:3]
	}
	return name
}

// NewReference returns a provider-qualified settlement reference such as
// "PAY-9F2C61AB".
func (p Provider) NewReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return p.RefPrefix() + "-" + strings.ToUpper(id[:10])
}

// TransactionStatus is the outcome recorded for a ledger entry.
type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "SUCCESS"
	TransactionFailed  TransactionStatus = "FAILED"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const TransactionContribution TransactionType = "CONTRIBUTION"

// LedgerTransaction is one settled contribution. Ledgers are append-only and
// kept most recent first.
type LedgerTransaction struct {
	ID             string            `json:"id"`
	Date           time.Time         `json:"date"`
	Amount         int64             `json:"amount"`
	Status         TransactionStatus `json:"status"`
	Ref            string            `json:"ref"`
	Type           TransactionType   `json:"type"`
	Provider       Provider          `json:"provider"`
	PlanName       string            `json:"planName"`
	SubscriptionID string            `json:"subscriptionId,omitempty"`
}
