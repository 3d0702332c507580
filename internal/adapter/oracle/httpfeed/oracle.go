// Package httpfeed polls a JSON price endpoint.
package httpfeed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// ErrMissingPrice is returned when the feed responds without a price
var ErrMissingPrice = errors.New("price feed response has no price")

// quote is the feed payload; price may be a JSON string or number
type quote struct {
	Price     *decimal.Decimal `json:"price"`
	Timestamp *time.Time       `json:"timestamp"`
}

// Oracle fetches one quote per Sample call
type Oracle struct {
	client *resty.Client
	url    string
	now    func() time.Time
}

// New creates an HTTP price oracle for url
func New(url string, timeout time.Duration) *Oracle {
	return &Oracle{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		url: url,
		now: time.Now,
	}
}

// Sample implements domain.PriceOracle
// The sample is stamped with the feed's timestamp when present, otherwise the receive time
func (o *Oracle) Sample(ctx context.Context) (domain.PriceSample, error) {
	var q quote

	resp, err := o.client.R().
		SetContext(ctx).
		SetResult(&q).
		Get(o.url)
	if err != nil {
		return domain.PriceSample{}, fmt.Errorf("failed to fetch price: %w", err)
	}
	if resp.IsError() {
		return domain.PriceSample{}, fmt.Errorf("failed to fetch price: feed returned status %d", resp.StatusCode())
	}
	if q.Price == nil {
		return domain.PriceSample{}, ErrMissingPrice
	}

	sample := domain.PriceSample{
		Timestamp: o.now(),
		Price:     *q.Price,
	}
	if q.Timestamp != nil && !q.Timestamp.IsZero() {
		sample.Timestamp = *q.Timestamp
	}

	if err := sample.Validate(); err != nil {
		return domain.PriceSample{}, fmt.Errorf("invalid price from feed: %w", err)
	}

	return sample, nil
}
