package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// LedgerClient queries an account's balance on a ledger
type LedgerClient interface {
	// LoadBalance returns the amount held by accountID on the given ledger
	// May fail or time out; callers treat any error as a QueryFailure
	LoadBalance(ctx context.Context, ledger LedgerID, accountID string) (decimal.Decimal, error)
}

// PriceOracle supplies a price sample on demand
type PriceOracle interface {
	// Sample returns a fresh price sample
	// On error the caller skips the tick rather than recording a sentinel value
	Sample(ctx context.Context) (PriceSample, error)
}

// IdentityProvider generates the public identity of a new wallet session
type IdentityProvider interface {
	// Generate returns fresh public addresses, one per address family it supports
	// Private material must not be retained
	Generate(ctx context.Context) (Identity, error)
}
