package evm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// weiExponent converts wei to whole native units (10^-18)
const weiExponent = -18

// ErrInvalidAddress is returned when the account ID is not a hex address
var ErrInvalidAddress = errors.New("invalid address")

// Client reads native balances from an EVM JSON-RPC node
type Client struct {
	eth *ethclient.Client
}

// Dial connects to the JSON-RPC endpoint at url
func Dial(ctx context.Context, url string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial evm node: %w", err)
	}
	return &Client{eth: eth}, nil
}

// LoadBalance returns the latest native balance of accountID in whole units
func (c *Client) LoadBalance(ctx context.Context, ledger domain.LedgerID, accountID string) (decimal.Decimal, error) {
	if !common.IsHexAddress(accountID) {
		return decimal.Zero, fmt.Errorf("%s account %q: %w", ledger, accountID, ErrInvalidAddress)
	}

	wei, err := c.eth.BalanceAt(ctx, common.HexToAddress(accountID), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load %s balance: %w", ledger, err)
	}

	return decimal.NewFromBigInt(wei, weiExponent), nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	c.eth.Close()
}
