package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LedgerID identifies an external balance-holding system (e.g. a blockchain network)
type LedgerID string

const (
	LedgerStellar LedgerID = "stellar"
	LedgerEVM     LedgerID = "evm"
	LedgerHyperPi LedgerID = "hyperpi"
)

// Balance represents the holdings of an account on a single ledger
type Balance struct {
	Ledger LedgerID
	Amount decimal.Decimal
}

// Balances maps each tracked ledger to the account's amount on it
// A tracked ledger always has an entry; failed queries are stored as zero
type Balances map[LedgerID]decimal.Decimal

// ZeroBalances returns a balance set with every given ledger at zero
func ZeroBalances(ledgers []LedgerID) Balances {
	balances := make(Balances, len(ledgers))
	for _, ledger := range ledgers {
		balances[ledger] = decimal.Zero
	}
	return balances
}

// Clone returns an independent copy of the balance set
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for ledger, amount := range b {
		out[ledger] = amount
	}
	return out
}

// Total sums the amounts across all ledgers
func (b Balances) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range b {
		total = total.Add(amount)
	}
	return total
}

// Ledgers returns the ledger IDs in sorted order
func (b Balances) Ledgers() []LedgerID {
	ledgers := make([]LedgerID, 0, len(b))
	for ledger := range b {
		ledgers = append(ledgers, ledger)
	}
	sort.Slice(ledgers, func(i, j int) bool { return ledgers[i] < ledgers[j] })
	return ledgers
}

// List returns the balance set as a slice ordered by ledger ID
func (b Balances) List() []Balance {
	out := make([]Balance, 0, len(b))
	for _, ledger := range b.Ledgers() {
		out = append(out, Balance{Ledger: ledger, Amount: b[ledger]})
	}
	return out
}

// ValidateAmount rejects negative amounts returned by a ledger
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
