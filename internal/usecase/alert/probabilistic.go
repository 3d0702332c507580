package alert

import (
	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// RandomSource yields uniformly distributed values in [0, 1)
// *rand.Rand satisfies it; tests inject a fixed sequence
type RandomSource interface {
	Float64() float64
}

// ProbabilisticEvaluator raises an alert with a fixed probability per sample
// It ignores price and history entirely and stands in for a predictive model.
type ProbabilisticEvaluator struct {
	Source      RandomSource
	Probability float64
}

// NewProbabilisticEvaluator creates a ProbabilisticEvaluator
// Probability 0.2 reproduces the classic "draw > 0.8" rule
func NewProbabilisticEvaluator(source RandomSource, probability float64) *ProbabilisticEvaluator {
	return &ProbabilisticEvaluator{
		Source:      source,
		Probability: probability,
	}
}

// Evaluate draws once from the source and triggers when the draw exceeds 1 - Probability
func (e *ProbabilisticEvaluator) Evaluate(_ domain.PriceSample, _ []domain.PriceSample) bool {
	if e.Probability <= 0 {
		return false
	}
	return e.Source.Float64() > 1-e.Probability
}
