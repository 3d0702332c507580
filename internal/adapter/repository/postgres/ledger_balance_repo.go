package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// ledgerBalanceRepository implements domain.LedgerClient over the internal ledger table
// Used for ledgers without a public query API (e.g. the HYPERPI stablecoin book)
type ledgerBalanceRepository struct {
	db *DB
}

// NewLedgerBalanceRepository creates a new SQL-backed ledger client
func NewLedgerBalanceRepository(db *DB) domain.LedgerClient {
	return &ledgerBalanceRepository{db: db}
}

// LoadBalance retrieves the amount held by an account on a ledger
// An account without a row holds nothing on that ledger
func (r *ledgerBalanceRepository) LoadBalance(ctx context.Context, ledger domain.LedgerID, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT amount
		FROM ledger_balances
		WHERE ledger_id = $1 AND account_id = $2
	`

	var amountStr string

	err := r.db.QueryRowContext(ctx, query, string(ledger), accountID).Scan(&amountStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get %s balance: %w", ledger, err)
	}

	// Parse amount (NUMERIC)
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s balance: %w", ledger, err)
	}

	return amount, nil
}
