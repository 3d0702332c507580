package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation requires a connected account
	ErrNotConnected = errors.New("account not connected")

	// ErrAlreadyActive is returned when the dashboard is activated twice
	ErrAlreadyActive = errors.New("dashboard already active")

	// ErrNotActive is returned when a tick runs while the dashboard is inactive
	ErrNotActive = errors.New("dashboard not active")

	// ErrInvalidAmount is returned when a ledger reports a negative balance
	ErrInvalidAmount = errors.New("invalid amount: balance must be non-negative")
)

// ConnectionError means identity or session setup failed
// Fatal to the connect attempt, recoverable by retrying
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryFailure means a single ledger query failed
// Recovered locally as a zero balance plus a surfaced warning
type QueryFailure struct {
	Ledger LedgerID
	Err    error
}

func (e *QueryFailure) Error() string {
	return fmt.Sprintf("balance query failed for ledger %s: %v", e.Ledger, e.Err)
}

func (e *QueryFailure) Unwrap() error {
	return e.Err
}

// SampleFailure means the price oracle failed to produce a sample
// Recovered by skipping the tick
type SampleFailure struct {
	Err error
}

func (e *SampleFailure) Error() string {
	return fmt.Sprintf("price sample failed: %v", e.Err)
}

func (e *SampleFailure) Unwrap() error {
	return e.Err
}
