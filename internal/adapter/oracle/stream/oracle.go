// Package stream keeps the latest price pushed over a websocket feed.
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

var (
	// ErrNoPrice is returned before the feed has delivered its first price
	ErrNoPrice = errors.New("no price received yet")

	// ErrStalePrice is returned when the latest price is older than the configured max age
	ErrStalePrice = errors.New("latest price is stale")
)

// message is one price update on the wire
type message struct {
	Price     *decimal.Decimal `json:"price"`
	Timestamp *time.Time       `json:"timestamp"`
}

// Oracle reads price updates in the background and serves the most recent one
type Oracle struct {
	conn   *websocket.Conn
	maxAge time.Duration
	log    zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	latest  domain.PriceSample
	has     bool
	readErr error

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to url and starts consuming updates
// maxAge of zero accepts a price of any age
func Dial(ctx context.Context, url string, maxAge time.Duration, log zerolog.Logger) (*Oracle, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial price stream: %w", err)
	}

	o := &Oracle{
		conn:   conn,
		maxAge: maxAge,
		log:    log.With().Str("oracle", "stream").Logger(),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go o.readLoop()

	o.log.Info().Str("url", url).Msg("Price stream connected")
	return o, nil
}

func (o *Oracle) readLoop() {
	defer close(o.done)

	for {
		var msg message
		if err := o.conn.ReadJSON(&msg); err != nil {
			o.mu.Lock()
			o.readErr = err
			o.mu.Unlock()

			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				o.log.Warn().Err(err).Msg("Price stream closed")
			}
			return
		}

		if msg.Price == nil {
			o.log.Debug().Msg("Ignoring price stream message without price")
			continue
		}

		sample := domain.PriceSample{Price: *msg.Price}
		if msg.Timestamp != nil && !msg.Timestamp.IsZero() {
			sample.Timestamp = *msg.Timestamp
		} else {
			sample.Timestamp = o.clock()
		}
		if err := sample.Validate(); err != nil {
			o.log.Warn().Err(err).Msg("Ignoring invalid price from stream")
			continue
		}

		o.mu.Lock()
		o.latest = sample
		o.has = true
		o.mu.Unlock()
	}
}

func (o *Oracle) clock() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.now()
}

// Sample implements domain.PriceOracle
func (o *Oracle) Sample(ctx context.Context) (domain.PriceSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceSample{}, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.readErr != nil {
		return domain.PriceSample{}, fmt.Errorf("price stream closed: %w", o.readErr)
	}
	if !o.has {
		return domain.PriceSample{}, ErrNoPrice
	}
	if o.maxAge > 0 && o.now().Sub(o.latest.Timestamp) > o.maxAge {
		return domain.PriceSample{}, ErrStalePrice
	}

	return o.latest, nil
}

// Close sends a close frame and waits for the reader to exit
func (o *Oracle) Close() error {
	var err error
	o.closeOnce.Do(func() {
		_ = o.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))

		select {
		case <-o.done:
		case <-time.After(2 * time.Second):
		}
		err = o.conn.Close()
		<-o.done
	})
	return err
}
