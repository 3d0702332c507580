package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedServer pushes each message and then holds the connection open until the client closes
func feedServer(t *testing.T, messages []string, closeAfter bool) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		if closeAfter {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"),
				time.Now().Add(time.Second))
			return
		}

		// Drain until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSample_ReturnsLatestPrice(t *testing.T) {
	url := feedServer(t, []string{
		`{"price":"10.5","timestamp":"2026-01-01T00:00:00Z"}`,
		`{"note":"heartbeat"}`,
		`{"price":"-3"}`,
		`{"price":"11.25","timestamp":"2026-01-01T00:00:01Z"}`,
	}, false)

	oracle, err := Dial(context.Background(), url, 0, zerolog.Nop())
	require.NoError(t, err)
	defer oracle.Close()

	assert.Eventually(t, func() bool {
		sample, err := oracle.Sample(context.Background())
		return err == nil && sample.Price.Equal(decimal.RequireFromString("11.25"))
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSample_NoPriceYet(t *testing.T) {
	url := feedServer(t, nil, false)

	oracle, err := Dial(context.Background(), url, 0, zerolog.Nop())
	require.NoError(t, err)
	defer oracle.Close()

	_, err = oracle.Sample(context.Background())
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestSample_StalePrice(t *testing.T) {
	url := feedServer(t, []string{`{"price":"10","timestamp":"2026-01-01T00:00:00Z"}`}, false)

	oracle, err := Dial(context.Background(), url, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	defer oracle.Close()

	stamp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	oracle.mu.Lock()
	oracle.now = func() time.Time { return stamp.Add(30 * time.Second) }
	oracle.mu.Unlock()

	require.Eventually(t, func() bool {
		_, err := oracle.Sample(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	oracle.mu.Lock()
	oracle.now = func() time.Time { return stamp.Add(2 * time.Minute) }
	oracle.mu.Unlock()

	_, err = oracle.Sample(context.Background())
	assert.ErrorIs(t, err, ErrStalePrice)
}

func TestSample_AfterServerClose(t *testing.T) {
	url := feedServer(t, []string{`{"price":"10","timestamp":"2026-01-01T00:00:00Z"}`}, true)

	oracle, err := Dial(context.Background(), url, 0, zerolog.Nop())
	require.NoError(t, err)
	defer oracle.Close()

	assert.Eventually(t, func() bool {
		_, err := oracle.Sample(context.Background())
		return err != nil && strings.Contains(err.Error(), "price stream closed")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/feed", 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	url := feedServer(t, nil, false)

	oracle, err := Dial(context.Background(), url, 0, zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, oracle.Close())
	assert.NoError(t, oracle.Close())
}
