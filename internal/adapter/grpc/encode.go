package grpc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/ledgerdash-backend/internal/usecase/dashboard"
)

// SnapshotToStruct converts a dashboard snapshot into a protobuf Struct
// Amounts and prices are encoded as decimal strings; chart prices as numbers.
func SnapshotToStruct(snap dashboard.Snapshot) (*structpb.Struct, error) {
	// 1. Account
	var account interface{}
	if snap.Account != nil {
		addresses := make(map[string]interface{}, len(snap.Account.Addresses))
		for family, address := range snap.Account.Addresses {
			addresses[string(family)] = address
		}

		account = map[string]interface{}{
			"id":           snap.Account.ID.String(),
			"public_key":   snap.Account.PublicKey,
			"addresses":    addresses,
			"connected_at": formatTime(snap.Account.ConnectedAt),
		}
	}

	// 2. Balances
	balances := make(map[string]interface{}, len(snap.Balances))
	for _, ledger := range snap.Balances.Ledgers() {
		balances[string(ledger)] = snap.Balances[ledger].String()
	}

	// 3. Price history and chart
	history := make([]interface{}, len(snap.PriceHistory))
	for i, sample := range snap.PriceHistory {
		history[i] = map[string]interface{}{
			"timestamp": formatTime(sample.Timestamp),
			"price":     sample.Price.String(),
		}
	}

	chart := dashboard.Chart(snap.PriceHistory)
	labels := make([]interface{}, len(chart.Labels))
	prices := make([]interface{}, len(chart.Prices))
	for i := range chart.Labels {
		labels[i] = chart.Labels[i]
		prices[i] = chart.Prices[i]
	}

	// 4. Alert
	alert := map[string]interface{}{
		"active": snap.Alert.Active,
	}
	if snap.Alert.Active {
		alert["raised_at"] = formatTime(snap.Alert.RaisedAt)
		alert["trigger_price"] = snap.Alert.Trigger.Price.String()
		alert["trigger_timestamp"] = formatTime(snap.Alert.Trigger.Timestamp)
	}

	// 5. Warnings
	warnings := make([]interface{}, len(snap.LedgerWarnings))
	for i, warning := range snap.LedgerWarnings {
		warnings[i] = map[string]interface{}{
			"ledger":               string(warning.Ledger),
			"message":              warning.Message,
			"consecutive_failures": warning.ConsecutiveFailures,
			"escalated":            warning.Escalated,
		}
	}

	fields := map[string]interface{}{
		"version":         snap.Version,
		"active":          snap.Active,
		"connected":       snap.Connected(),
		"account":         account,
		"balances":        balances,
		"total_balance":   snap.Balances.Total().String(),
		"price_history":   history,
		"chart":           map[string]interface{}{"labels": labels, "prices": prices},
		"alert":           alert,
		"ledger_warnings": warnings,
		"feed": map[string]interface{}{
			"consecutive_failures": snap.Feed.ConsecutiveFailures,
			"degraded":             snap.Feed.Degraded,
			"last_error":           snap.Feed.LastError,
		},
		"pulse": map[string]interface{}{
			"seq": snap.Pulse.Seq,
			"at":  formatTime(snap.Pulse.At),
		},
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return msg, nil
}

// formatTime renders t as RFC 3339, or "" for the zero time
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
