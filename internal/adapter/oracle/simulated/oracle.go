// Package simulated provides a price oracle that draws prices uniformly from [0, Scale).
package simulated

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// DefaultScale is the exclusive upper bound of simulated prices
const DefaultScale = 100

// Oracle generates random prices for demos and local runs
type Oracle struct {
	mu    sync.Mutex
	rng   *rand.Rand
	scale float64
	now   func() time.Time
}

// New creates a simulated oracle drawing from rng
// rng is owned by the oracle afterwards; pass a seeded source for reproducible runs
func New(rng *rand.Rand, scale float64) *Oracle {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Oracle{
		rng:   rng,
		scale: scale,
		now:   time.Now,
	}
}

// Sample implements domain.PriceOracle
func (o *Oracle) Sample(ctx context.Context) (domain.PriceSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceSample{}, err
	}

	o.mu.Lock()
	draw := o.rng.Float64()
	o.mu.Unlock()

	return domain.PriceSample{
		Timestamp: o.now(),
		Price:     decimal.NewFromFloat(draw * o.scale).Round(4),
	}, nil
}
