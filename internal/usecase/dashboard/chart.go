package dashboard

import (
	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// ChartTimeFormat is the label format of chart points
const ChartTimeFormat = "15:04:05"

// ChartSeries is the line-chart view of the price history
type ChartSeries struct {
	Labels []string
	Prices []float64
}

// Chart converts the price history into chart labels and values, oldest first
func Chart(history []domain.PriceSample) ChartSeries {
	series := ChartSeries{
		Labels: make([]string, len(history)),
		Prices: make([]float64, len(history)),
	}

	for i, sample := range history {
		series.Labels[i] = sample.Timestamp.Format(ChartTimeFormat)
		series.Prices[i] = sample.Float()
	}

	return series
}
