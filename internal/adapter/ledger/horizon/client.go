package horizon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// NativeAsset is the asset code reported for a Stellar account's native balance
const NativeAsset = "XLM"

// ErrAccountNotFound is returned when Horizon has no record of the account
var ErrAccountNotFound = errors.New("account not found")

// Client reads balances from a Horizon-compatible REST API
type Client struct {
	client    *resty.Client
	assetCode string
}

// accountResponse is the subset of the Horizon account resource we read
type accountResponse struct {
	Balances []struct {
		Balance   string `json:"balance"`
		AssetType string `json:"asset_type"`
		AssetCode string `json:"asset_code"`
	} `json:"balances"`
}

// NewClient creates a new Horizon client
// assetCode selects the balance to report; empty or XLM means the native balance
func NewClient(baseURL, assetCode string, timeout time.Duration) *Client {
	if assetCode == "" {
		assetCode = NativeAsset
	}

	return &Client{
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		assetCode: assetCode,
	}
}

// LoadBalance returns the account's balance of the configured asset
// An account without a trustline for the asset holds zero of it.
func (c *Client) LoadBalance(ctx context.Context, ledger domain.LedgerID, accountID string) (decimal.Decimal, error) {
	var account accountResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("account", accountID).
		SetResult(&account).
		Get("/accounts/{account}")
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load %s account: %w", ledger, err)
	}

	if resp.StatusCode() == http.StatusNotFound {
		return decimal.Zero, fmt.Errorf("%s account %s: %w", ledger, accountID, ErrAccountNotFound)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("failed to load %s account: horizon returned status %d", ledger, resp.StatusCode())
	}

	for _, balance := range account.Balances {
		if !c.matches(balance.AssetType, balance.AssetCode) {
			continue
		}

		amount, err := decimal.NewFromString(balance.Balance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to parse %s balance: %w", ledger, err)
		}
		return amount, nil
	}

	return decimal.Zero, nil
}

func (c *Client) matches(assetType, assetCode string) bool {
	if c.assetCode == NativeAsset {
		return assetType == "native" || assetCode == NativeAsset
	}
	return assetCode == c.assetCode
}
