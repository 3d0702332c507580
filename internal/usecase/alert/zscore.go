package alert

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// ZScoreEvaluator flags samples that deviate from the recent mean by more than
// Threshold standard deviations
type ZScoreEvaluator struct {
	Threshold  float64
	MinSamples int // History points required before the rule can fire
}

// NewZScoreEvaluator creates a ZScoreEvaluator
func NewZScoreEvaluator(threshold float64, minSamples int) *ZScoreEvaluator {
	if minSamples < 2 {
		minSamples = 2
	}
	return &ZScoreEvaluator{
		Threshold:  threshold,
		MinSamples: minSamples,
	}
}

// Evaluate computes |price - mean| / stddev over history
// Returns false when history is too short or flat
func (e *ZScoreEvaluator) Evaluate(sample domain.PriceSample, history []domain.PriceSample) bool {
	score, ok := e.Score(sample, history)
	if !ok {
		return false
	}
	return math.Abs(score) >= e.Threshold
}

// Score returns the signed z-score of sample against history
func (e *ZScoreEvaluator) Score(sample domain.PriceSample, history []domain.PriceSample) (float64, bool) {
	if len(history) < e.MinSamples {
		return 0, false
	}

	prices := make([]float64, len(history))
	for i, h := range history {
		prices[i] = h.Float()
	}

	mean, stdDev := stat.MeanStdDev(prices, nil)
	if stdDev == 0 || math.IsNaN(stdDev) {
		return 0, false
	}

	return (sample.Float() - mean) / stdDev, true
}
