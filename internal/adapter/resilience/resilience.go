// Package resilience wraps ledger clients and price oracles with circuit breaking and rate limiting.
package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// Settings configures a breaker and an optional limiter around one upstream
type Settings struct {
	Name string
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before letting a trial request through
	OpenTimeout time.Duration
	// RPS of zero disables rate limiting
	RPS   float64
	Burst int
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 3
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.Burst <= 0 {
		s.Burst = 1
	}
	return s
}

func newBreaker(s Settings, log zerolog.Logger) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{Name: s.Name}
	st.Timeout = s.OpenTimeout
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= s.FailureThreshold
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
	}
	return gobreaker.NewCircuitBreaker(st)
}

func newLimiter(s Settings) *rate.Limiter {
	if s.RPS <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(s.RPS), s.Burst)
}

// LedgerClient decorates a domain.LedgerClient
type LedgerClient struct {
	next    domain.LedgerClient
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// WrapLedger returns next guarded by a circuit breaker and, when configured, a rate limiter
func WrapLedger(next domain.LedgerClient, s Settings, log zerolog.Logger) *LedgerClient {
	s = s.withDefaults()
	return &LedgerClient{
		next:    next,
		breaker: newBreaker(s, log),
		limiter: newLimiter(s),
	}
}

// LoadBalance implements domain.LedgerClient
func (c *LedgerClient) LoadBalance(ctx context.Context, ledger domain.LedgerID, accountID string) (decimal.Decimal, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return decimal.Zero, fmt.Errorf("rate limit wait for %s: %w", ledger, err)
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.next.LoadBalance(ctx, ledger, accountID)
	})
	if err != nil {
		return decimal.Zero, err
	}

	return result.(decimal.Decimal), nil
}

// State reports the breaker state
func (c *LedgerClient) State() gobreaker.State {
	return c.breaker.State()
}

// PriceOracle decorates a domain.PriceOracle
type PriceOracle struct {
	next    domain.PriceOracle
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// WrapOracle returns next guarded by a circuit breaker and, when configured, a rate limiter
func WrapOracle(next domain.PriceOracle, s Settings, log zerolog.Logger) *PriceOracle {
	s = s.withDefaults()
	return &PriceOracle{
		next:    next,
		breaker: newBreaker(s, log),
		limiter: newLimiter(s),
	}
}

// Sample implements domain.PriceOracle
func (o *PriceOracle) Sample(ctx context.Context) (domain.PriceSample, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return domain.PriceSample{}, fmt.Errorf("rate limit wait for price oracle: %w", err)
		}
	}

	result, err := o.breaker.Execute(func() (interface{}, error) {
		return o.next.Sample(ctx)
	})
	if err != nil {
		return domain.PriceSample{}, err
	}

	return result.(domain.PriceSample), nil
}

// State reports the breaker state
func (o *PriceOracle) State() gobreaker.State {
	return o.breaker.State()
}
