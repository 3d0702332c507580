package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample represents a single price observation produced by a PriceOracle
// Immutable after creation
type PriceSample struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// Validate ensures the sample adheres to domain rules
func (s PriceSample) Validate() error {
	if s.Timestamp.IsZero() {
		return errors.New("price sample timestamp must be set")
	}
	if s.Price.IsNegative() {
		return errors.New("price sample price cannot be negative")
	}
	return nil
}

// Float returns the price as a float64 for statistics and charting
func (s PriceSample) Float() float64 {
	return s.Price.InexactFloat64()
}
