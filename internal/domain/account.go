package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Account represents the connected wallet identity of a dashboard session
// Created on connect, immutable while connected, destroyed on disconnect
type Account struct {
	ID          uuid.UUID // Session ID, regenerated on every connect
	PublicKey   string    // Primary public address, no key material is ever held
	Addresses   Identity  // Per-family addresses used to query ledgers
	ConnectedAt time.Time
}

// NewAccount creates a new Account for the given identity
func NewAccount(identity Identity, connectedAt time.Time) (*Account, error) {
	account := &Account{
		ID:          uuid.New(),
		PublicKey:   identity.Primary(),
		Addresses:   identity.Clone(),
		ConnectedAt: connectedAt,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	return account, nil
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.PublicKey == "" {
		return errors.New("account public key cannot be empty")
	}
	if a.ConnectedAt.IsZero() {
		return errors.New("account connected time must be set")
	}
	return nil
}

// AddressFor returns the address to query the ledger with
// Falls back to the primary public key when the ledger's family has no address.
func (a *Account) AddressFor(ledger LedgerID) string {
	if address := a.Addresses[ledger.Family()]; address != "" {
		return address
	}
	return a.PublicKey
}
