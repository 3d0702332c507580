package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
	"github.com/simaogato/ledgerdash-backend/internal/metrics"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/session"
)

const (
	ledgerA domain.LedgerID = "ledgerA"
	ledgerB domain.LedgerID = "ledgerB"
)

// MockPriceOracle is a mock implementation of PriceOracle for testing
type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) Sample(ctx context.Context) (domain.PriceSample, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.PriceSample), args.Error(1)
}

// MockIdentityProvider is a mock implementation of IdentityProvider for testing
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Generate(ctx context.Context) (domain.Identity, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Identity), args.Error(1)
}

// MockLedgerClient is a mock implementation of LedgerClient for testing
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) LoadBalance(ctx context.Context, ledger domain.LedgerID, accountID string) (decimal.Decimal, error) {
	args := m.Called(ctx, ledger, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func sampleAt(n int, price float64) domain.PriceSample {
	return domain.PriceSample{
		Timestamp: baseTime.Add(time.Duration(n) * 10 * time.Second),
		Price:     decimal.NewFromFloat(price),
	}
}

func never(domain.PriceSample, []domain.PriceSample) bool { return false }

type fixture struct {
	service  *DashboardService
	oracle   *MockPriceOracle
	identity *MockIdentityProvider
	ledger   *MockLedgerClient
	metrics  *metrics.Metrics
}

// newFixture builds an activated dashboard whose scheduler never fires during a test;
// ticks are driven directly.
func newFixture(t *testing.T, evaluator domain.AlertEvaluator, mutate func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		oracle:   new(MockPriceOracle),
		identity: new(MockIdentityProvider),
		ledger:   new(MockLedgerClient),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}

	sessionService := session.NewSessionService(f.identity, map[domain.LedgerID]domain.LedgerClient{
		ledgerA: f.ledger,
		ledgerB: f.ledger,
	}, time.Second, zerolog.Nop())

	opts := DefaultOptions()
	opts.PriceInterval = time.Hour
	opts.PulseInterval = time.Hour
	if mutate != nil {
		mutate(&opts)
	}

	f.service = NewDashboardService(sessionService, f.oracle, evaluator, f.metrics, opts, zerolog.Nop())
	require.NoError(t, f.service.Activate())
	t.Cleanup(f.service.Deactivate)

	return f
}

func TestPriceTick_SkipsFailedSample(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.oracle.On("Sample", ctx).Return(sampleAt(1, 10), nil).Once()
	f.oracle.On("Sample", ctx).Return(sampleAt(2, 11), nil).Once()
	f.oracle.On("Sample", ctx).Return(domain.PriceSample{}, errors.New("oracle down")).Once()
	f.oracle.On("Sample", ctx).Return(sampleAt(4, 12), nil).Once()
	f.oracle.On("Sample", ctx).Return(sampleAt(5, 13), nil).Once()

	// Execute five ticks; the third rejects
	for i := 1; i <= 5; i++ {
		err := f.service.PriceTick(ctx)
		if i == 3 {
			var sampleErr *domain.SampleFailure
			assert.True(t, errors.As(err, &sampleErr))
		} else {
			assert.NoError(t, err)
		}
	}

	// Assert: exactly ticks 1, 2, 4, 5 were recorded
	history := f.service.Snapshot().PriceHistory
	assert.Equal(t, []domain.PriceSample{sampleAt(1, 10), sampleAt(2, 11), sampleAt(4, 12), sampleAt(5, 13)}, history)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SampleFailures))
	assert.Equal(t, 5.0, testutil.ToFloat64(f.metrics.TicksTotal.WithLabelValues(TaskPrice)))

	f.oracle.AssertExpectations(t)
}

func TestPriceTick_HistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	for i := 1; i <= 25; i++ {
		f.oracle.On("Sample", ctx).Return(sampleAt(i, float64(i)), nil).Once()
		require.NoError(t, f.service.PriceTick(ctx))
	}

	history := f.service.Snapshot().PriceHistory
	require.Len(t, history, 20)
	assert.Equal(t, sampleAt(6, 6), history[0])
	assert.Equal(t, sampleAt(25, 25), history[19])
}

func TestPriceTick_EvaluatorSeesPriorHistory(t *testing.T) {
	ctx := context.Background()

	var seen [][]domain.PriceSample
	evaluator := domain.AlertEvaluatorFunc(func(sample domain.PriceSample, history []domain.PriceSample) bool {
		seen = append(seen, history)
		return false
	})
	f := newFixture(t, evaluator, nil)

	f.oracle.On("Sample", ctx).Return(sampleAt(1, 10), nil).Once()
	f.oracle.On("Sample", ctx).Return(sampleAt(2, 20), nil).Once()

	require.NoError(t, f.service.PriceTick(ctx))
	require.NoError(t, f.service.PriceTick(ctx))

	require.Len(t, seen, 2)
	assert.Empty(t, seen[0])
	assert.Equal(t, []domain.PriceSample{sampleAt(1, 10)}, seen[1])
}

func TestAlert_StickyUntilAcknowledged(t *testing.T) {
	ctx := context.Background()
	results := []bool{true, false, false}
	calls := 0
	evaluator := domain.AlertEvaluatorFunc(func(domain.PriceSample, []domain.PriceSample) bool {
		result := results[calls]
		calls++
		return result
	})
	f := newFixture(t, evaluator, nil)

	f.oracle.On("Sample", ctx).Return(sampleAt(1, 50), nil)

	require.NoError(t, f.service.PriceTick(ctx))
	assert.True(t, f.service.Snapshot().Alert.Active)

	// A non-triggering tick does not clear a sticky alert
	require.NoError(t, f.service.PriceTick(ctx))
	assert.True(t, f.service.Snapshot().Alert.Active)

	f.service.AcknowledgeAlert()
	assert.False(t, f.service.Snapshot().Alert.Active)

	require.NoError(t, f.service.PriceTick(ctx))
	assert.False(t, f.service.Snapshot().Alert.Active)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AlertsRaised))
}

func TestAlert_OverwriteMode(t *testing.T) {
	ctx := context.Background()
	results := []bool{true, false}
	calls := 0
	evaluator := domain.AlertEvaluatorFunc(func(domain.PriceSample, []domain.PriceSample) bool {
		result := results[calls]
		calls++
		return result
	})
	f := newFixture(t, evaluator, func(o *Options) { o.StickyAlerts = false })

	f.oracle.On("Sample", ctx).Return(sampleAt(1, 50), nil)

	require.NoError(t, f.service.PriceTick(ctx))
	assert.True(t, f.service.Snapshot().Alert.Active)

	require.NoError(t, f.service.PriceTick(ctx))
	assert.False(t, f.service.Snapshot().Alert.Active)
}

func TestFeed_DegradesAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), func(o *Options) { o.FailureThreshold = 2 })

	f.oracle.On("Sample", ctx).Return(domain.PriceSample{}, errors.New("timeout")).Twice()
	f.oracle.On("Sample", ctx).Return(sampleAt(1, 10), nil).Once()

	assert.Error(t, f.service.PriceTick(ctx))
	feed := f.service.Snapshot().Feed
	assert.Equal(t, 1, feed.ConsecutiveFailures)
	assert.False(t, feed.Degraded)

	assert.Error(t, f.service.PriceTick(ctx))
	feed = f.service.Snapshot().Feed
	assert.True(t, feed.Degraded)
	assert.Contains(t, feed.LastError, "timeout")

	// A good sample resets the counter
	require.NoError(t, f.service.PriceTick(ctx))
	assert.Equal(t, FeedStatus{}, f.service.Snapshot().Feed)
}

func TestPriceTick_InvalidSampleIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.oracle.On("Sample", ctx).Return(domain.PriceSample{Timestamp: baseTime, Price: decimal.NewFromInt(-1)}, nil).Once()

	assert.Error(t, f.service.PriceTick(ctx))
	assert.Empty(t, f.service.Snapshot().PriceHistory)
}

func TestConnect_AllLedgersFail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.identity.On("Generate", ctx).Return(domain.Identity{domain.FamilyEVM: "0xPUB"}, nil)
	f.ledger.On("LoadBalance", mock.Anything, mock.Anything, "0xPUB").Return(decimal.Zero, errors.New("rejected"))

	account, err := f.service.Connect(ctx)

	require.NoError(t, err)
	require.NotNil(t, account)

	snap := f.service.Snapshot()
	assert.True(t, snap.Connected())
	assert.Len(t, snap.Balances, 2)
	assert.True(t, snap.Balances[ledgerA].IsZero())
	assert.True(t, snap.Balances[ledgerB].IsZero())

	require.Len(t, snap.LedgerWarnings, 2)
	assert.Equal(t, ledgerA, snap.LedgerWarnings[0].Ledger)
	assert.Equal(t, 1, snap.LedgerWarnings[0].ConsecutiveFailures)
	assert.False(t, snap.LedgerWarnings[0].Escalated)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QueryFailures.WithLabelValues(string(ledgerA))))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ConnectedLedgers))
}

func TestConnect_TwiceKeepsLedgerWarnings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.identity.On("Generate", ctx).Return(domain.Identity{domain.FamilyEVM: "0xPUB"}, nil).Once()
	f.ledger.On("LoadBalance", mock.Anything, mock.Anything, "0xPUB").Return(decimal.Zero, errors.New("rejected"))

	first, err := f.service.Connect(ctx)
	require.NoError(t, err)
	before := f.service.Snapshot()

	second, err := f.service.Connect(ctx)
	require.NoError(t, err)
	after := f.service.Snapshot()

	// The second connect reuses the session and queries nothing
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, after.LedgerWarnings, 2)
	assert.Equal(t, before.LedgerWarnings, after.LedgerWarnings)
	assert.Equal(t, before.Version, after.Version)
	assert.True(t, after.Balances[ledgerA].IsZero())
	assert.True(t, after.Balances[ledgerB].IsZero())
	f.ledger.AssertNumberOfCalls(t, "LoadBalance", 2)
}

func TestConnect_DisconnectedWhileLoading(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.identity.On("Generate", ctx).Return(domain.Identity{domain.FamilyEVM: "0xPUB"}, nil)
	f.ledger.On("LoadBalance", mock.Anything, mock.Anything, "0xPUB").
		Run(func(mock.Arguments) { f.service.Disconnect() }).
		Return(decimal.NewFromInt(1), nil)

	account, err := f.service.Connect(ctx)

	assert.Nil(t, account)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	snap := f.service.Snapshot()
	assert.False(t, snap.Connected())
	assert.Empty(t, snap.Balances)
	assert.Empty(t, snap.LedgerWarnings)
}

func TestRefresh_EscalatesRepeatedLedgerFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), func(o *Options) { o.FailureThreshold = 3 })

	f.identity.On("Generate", ctx).Return(domain.Identity{domain.FamilyEVM: "0xPUB"}, nil)
	f.ledger.On("LoadBalance", mock.Anything, ledgerA, "0xPUB").Return(decimal.NewFromInt(4), nil)
	f.ledger.On("LoadBalance", mock.Anything, ledgerB, "0xPUB").Return(decimal.Zero, errors.New("rejected"))

	_, err := f.service.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, f.service.RefreshBalances(ctx))
	require.NoError(t, f.service.RefreshBalances(ctx))

	warnings := f.service.Snapshot().LedgerWarnings
	require.Len(t, warnings, 1)
	assert.Equal(t, ledgerB, warnings[0].Ledger)
	assert.Equal(t, 3, warnings[0].ConsecutiveFailures)
	assert.True(t, warnings[0].Escalated)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ConnectedLedgers))
}

func TestRefresh_NotConnected(t *testing.T) {
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)
	assert.ErrorIs(t, f.service.RefreshBalances(context.Background()), domain.ErrNotConnected)
}

func TestConnect_IdentityFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.identity.On("Generate", ctx).Return(domain.Identity(nil), errors.New("no entropy"))

	account, err := f.service.Connect(ctx)

	assert.Nil(t, account)
	var connErr *domain.ConnectionError
	assert.True(t, errors.As(err, &connErr))
	assert.False(t, f.service.Snapshot().Connected())
}

func TestDisconnect_TwiceEqualsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.identity.On("Generate", ctx).Return(domain.Identity{domain.FamilyEVM: "0xPUB"}, nil)
	f.ledger.On("LoadBalance", mock.Anything, mock.Anything, "0xPUB").Return(decimal.NewFromInt(1), nil)

	_, err := f.service.Connect(ctx)
	require.NoError(t, err)

	f.service.Disconnect()
	once := f.service.Snapshot()
	f.service.Disconnect()
	twice := f.service.Snapshot()

	assert.Nil(t, twice.Account)
	assert.Empty(t, twice.Balances)
	assert.Equal(t, once.Account, twice.Account)
	assert.Equal(t, once.Balances, twice.Balances)
	assert.Equal(t, once.LedgerWarnings, twice.LedgerWarnings)
}

func TestLifecycle_NoMutationAfterDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	f.service.Deactivate()
	assert.NotPanics(t, f.service.Deactivate)
	assert.False(t, f.service.Active())

	assert.ErrorIs(t, f.service.PriceTick(ctx), domain.ErrNotActive)
	assert.ErrorIs(t, f.service.PulseTick(ctx), domain.ErrNotActive)
	assert.Empty(t, f.service.Snapshot().PriceHistory)
	f.oracle.AssertNotCalled(t, "Sample", mock.Anything)
}

func TestLifecycle_InFlightSampleDroppedAfterDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	sampling := make(chan struct{})
	release := make(chan struct{})
	f.oracle.On("Sample", ctx).
		Run(func(mock.Arguments) {
			close(sampling)
			<-release
		}).
		Return(sampleAt(1, 10), nil).Once()

	done := make(chan error, 1)
	go func() { done <- f.service.PriceTick(ctx) }()

	<-sampling
	f.service.Deactivate()
	close(release)

	assert.ErrorIs(t, <-done, domain.ErrNotActive)
	assert.Empty(t, f.service.Snapshot().PriceHistory)
}

func TestLifecycle_ActivateTwice(t *testing.T) {
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)
	assert.ErrorIs(t, f.service.Activate(), domain.ErrAlreadyActive)

	// Reactivation after teardown is allowed
	f.service.Deactivate()
	require.NoError(t, f.service.Activate())
	assert.True(t, f.service.Active())
}

func TestLifecycle_ActivateFailureTearsDown(t *testing.T) {
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)
	f.service.Deactivate()

	// An invalid interval makes task registration fail mid-activation
	f.service.opts.PulseInterval = 0

	assert.Error(t, f.service.Activate())
	assert.False(t, f.service.Active())
}

func TestPulseTick(t *testing.T) {
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	require.NoError(t, f.service.PulseTick(context.Background()))
	require.NoError(t, f.service.PulseTick(context.Background()))

	pulse := f.service.Snapshot().Pulse
	assert.Equal(t, uint64(2), pulse.Seq)
	assert.False(t, pulse.At.IsZero())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.TicksTotal.WithLabelValues(TaskPulse)))
}

func TestSubscribe_ReceivesLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, domain.AlertEvaluatorFunc(never), nil)

	updates, unsubscribe := f.service.Subscribe()

	initial := <-updates
	assert.True(t, initial.Active)

	f.oracle.On("Sample", ctx).Return(sampleAt(1, 10), nil).Once()
	f.oracle.On("Sample", ctx).Return(sampleAt(2, 11), nil).Once()
	require.NoError(t, f.service.PriceTick(ctx))
	require.NoError(t, f.service.PriceTick(ctx))

	// Only the newest pending snapshot is kept
	latest := <-updates
	assert.Len(t, latest.PriceHistory, 2)
	assert.Greater(t, latest.Version, initial.Version)

	unsubscribe()
	assert.NotPanics(t, unsubscribe)

	_, open := <-updates
	assert.False(t, open)
}
