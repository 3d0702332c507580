package alert

import (
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// DeviationEvaluator flags a sample whose price moved more than Threshold
// (as a fraction, e.g. 0.05 = 5%) away from the previous sample
type DeviationEvaluator struct {
	Threshold decimal.Decimal
}

// NewDeviationEvaluator creates a DeviationEvaluator
func NewDeviationEvaluator(threshold float64) *DeviationEvaluator {
	return &DeviationEvaluator{
		Threshold: decimal.NewFromFloat(threshold),
	}
}

// Evaluate compares sample against the last history entry
func (e *DeviationEvaluator) Evaluate(sample domain.PriceSample, history []domain.PriceSample) bool {
	if len(history) == 0 {
		return false
	}

	previous := history[len(history)-1].Price
	if previous.IsZero() {
		return false
	}

	change := sample.Price.Sub(previous).Div(previous).Abs()
	return change.GreaterThan(e.Threshold)
}
