package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
	"github.com/simaogato/ledgerdash-backend/internal/metrics"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/scheduler"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/session"
)

// Task names registered with the scheduler
const (
	TaskPrice = "price"
	TaskPulse = "pulse"
)

// Options configures the dashboard
type Options struct {
	PriceInterval    time.Duration
	PulseInterval    time.Duration
	HistoryCapacity  int
	StickyAlerts     bool // Alert stays raised until acknowledged
	FailureThreshold int  // Consecutive failures before a warning is escalated
	Overlap          scheduler.OverlapPolicy
}

// DefaultOptions returns the classic dashboard timings
func DefaultOptions() Options {
	return Options{
		PriceInterval:    10 * time.Second,
		PulseInterval:    5 * time.Second,
		HistoryCapacity:  domain.DefaultHistoryCapacity,
		StickyAlerts:     true,
		FailureThreshold: 3,
		Overlap:          scheduler.OverlapAllow,
	}
}

// DashboardService orchestrates the session, sampling, history and alerting
// It exclusively owns the account session, the price history and the alert state;
// observers only ever receive Snapshot copies.
type DashboardService struct {
	Session   *session.SessionService
	Oracle    domain.PriceOracle
	Evaluator domain.AlertEvaluator
	Metrics   *metrics.Metrics

	opts Options
	log  zerolog.Logger
	now  func() time.Time

	mu             sync.Mutex
	history        *domain.PriceHistory
	alert          domain.AlertState
	ledgerWarnings map[domain.LedgerID]*LedgerWarning
	feed           FeedStatus
	pulse          Pulse
	active         bool
	epoch          uint64 // Bumped on every activate/deactivate; stale tick results are dropped
	scheduler      *scheduler.Scheduler
	version        uint64
	subscribers    map[int]chan Snapshot
	nextSubscriber int
}

// NewDashboardService creates a new DashboardService instance
// A nil metrics argument registers collectors on a private registry
func NewDashboardService(
	sessionService *session.SessionService,
	oracle domain.PriceOracle,
	evaluator domain.AlertEvaluator,
	m *metrics.Metrics,
	opts Options,
	log zerolog.Logger,
) *DashboardService {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 1
	}

	return &DashboardService{
		Session:        sessionService,
		Oracle:         oracle,
		Evaluator:      evaluator,
		Metrics:        m,
		opts:           opts,
		log:            log.With().Str("component", "dashboard").Logger(),
		now:            time.Now,
		history:        domain.NewPriceHistory(opts.HistoryCapacity),
		ledgerWarnings: make(map[domain.LedgerID]*LedgerWarning),
		subscribers:    make(map[int]chan Snapshot),
	}
}

// Connect connects a wallet identity and loads its balances
// Only identity failure is returned as an error; ledger failures surface as warnings
func (d *DashboardService) Connect(ctx context.Context) (*domain.Account, error) {
	result, err := d.Session.Connect(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("Connect failed")
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if result.Stale {
		// Disconnected while balances were loading
		return nil, domain.ErrNotConnected
	}
	if result.Reused {
		return result.Account, nil
	}

	d.applyLedgerResult(result)
	d.publishLocked()

	return result.Account, nil
}

// RefreshBalances re-queries every ledger for the connected account
func (d *DashboardService) RefreshBalances(ctx context.Context) error {
	result, err := d.Session.Refresh(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.applyLedgerResult(result)
	d.publishLocked()

	return nil
}

// Disconnect clears the account and balances; idempotent
func (d *DashboardService) Disconnect() {
	d.Session.Disconnect()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.ledgerWarnings = make(map[domain.LedgerID]*LedgerWarning)
	d.Metrics.ConnectedLedgers.Set(0)
	d.publishLocked()
}

// AcknowledgeAlert clears the alert flag
func (d *DashboardService) AcknowledgeAlert() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.alert.Active {
		return
	}

	d.alert.Clear()
	d.log.Info().Msg("Alert acknowledged")
	d.publishLocked()
}

// Activate starts the price and pulse tasks
// If registration fails the scheduler is torn down before returning.
func (d *DashboardService) Activate() (err error) {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return domain.ErrAlreadyActive
	}

	s := scheduler.New(d.log, d.opts.Overlap)
	d.active = true
	d.epoch++
	d.scheduler = s
	d.publishLocked()
	d.mu.Unlock()

	defer func() {
		if err != nil {
			d.Deactivate()
		}
	}()

	tasks := []scheduler.Task{
		{Name: TaskPrice, Interval: d.opts.PriceInterval, Run: d.PriceTick},
		{Name: TaskPulse, Interval: d.opts.PulseInterval, Run: d.PulseTick},
	}
	for _, task := range tasks {
		if err := s.Add(task); err != nil {
			return err
		}
	}

	s.Start()
	d.log.Info().Msg("Dashboard activated")

	return nil
}

// Deactivate stops the scheduler exactly once; later calls are no-ops
func (d *DashboardService) Deactivate() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}

	s := d.scheduler
	d.active = false
	d.epoch++
	d.scheduler = nil
	d.publishLocked()
	d.mu.Unlock()

	// Stop waits for running ticks, which need the lock
	if s != nil {
		s.Stop()
	}

	d.log.Info().Msg("Dashboard deactivated")
}

// Active reports whether the scheduler is running
func (d *DashboardService) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// PriceTick samples the oracle, pushes the sample and evaluates the alert rule
// A failed sample skips the tick; results arriving after deactivation are dropped.
func (d *DashboardService) PriceTick(ctx context.Context) error {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return domain.ErrNotActive
	}
	epoch := d.epoch
	d.mu.Unlock()

	// 1. Sample outside the lock
	sample, err := d.Oracle.Sample(ctx)
	if err == nil {
		err = sample.Validate()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active || d.epoch != epoch {
		return domain.ErrNotActive
	}

	d.Metrics.TicksTotal.WithLabelValues(TaskPrice).Inc()

	if err != nil {
		failure := &domain.SampleFailure{Err: err}
		d.recordSampleFailureLocked(failure)
		d.publishLocked()
		return failure
	}
	d.feed = FeedStatus{}

	// 2. Push, then evaluate against the samples that preceded this one
	d.history.Push(sample)
	samples := d.history.Samples()
	prior := samples[:len(samples)-1]

	triggered := d.Evaluator.Evaluate(sample, prior)
	d.applyAlertLocked(triggered, sample)

	d.Metrics.HistoryLength.Set(float64(d.history.Len()))
	d.Metrics.LastPrice.Set(sample.Float())

	// 3. Publish
	d.publishLocked()

	return nil
}

// PulseTick emits the liveness pulse; it has no effect on data
func (d *DashboardService) PulseTick(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return domain.ErrNotActive
	}

	d.pulse.Seq++
	d.pulse.At = d.now()
	d.Metrics.TicksTotal.WithLabelValues(TaskPulse).Inc()
	d.publishLocked()

	return nil
}

// applyAlertLocked updates the alert flag according to the configured mode
func (d *DashboardService) applyAlertLocked(triggered bool, sample domain.PriceSample) {
	if !triggered {
		if !d.opts.StickyAlerts {
			d.alert.Clear()
		}
		return
	}

	if d.alert.Raise(sample, d.now()) {
		d.Metrics.AlertsRaised.Inc()
		d.log.Info().
			Str("price", sample.Price.String()).
			Time("sampled_at", sample.Timestamp).
			Msg("Price alert raised")
	}
}

// recordSampleFailureLocked counts consecutive failures and escalates at the threshold
func (d *DashboardService) recordSampleFailureLocked(failure *domain.SampleFailure) {
	d.feed.ConsecutiveFailures++
	d.feed.LastError = failure.Error()
	d.Metrics.SampleFailures.Inc()

	if d.feed.ConsecutiveFailures >= d.opts.FailureThreshold {
		if !d.feed.Degraded {
			d.log.Error().
				Err(failure).
				Int("consecutive_failures", d.feed.ConsecutiveFailures).
				Msg("Price feed degraded")
		}
		d.feed.Degraded = true
	}
}

// applyLedgerResult tracks per-ledger warnings from a connect or refresh
func (d *DashboardService) applyLedgerResult(result *session.ConnectResult) {
	if result.Stale || result.Reused {
		return
	}

	failed := make(map[domain.LedgerID]*domain.QueryFailure, len(result.Failures))
	for _, failure := range result.Failures {
		failed[failure.Ledger] = failure
	}

	for ledger := range result.Balances {
		failure, ok := failed[ledger]
		if !ok {
			delete(d.ledgerWarnings, ledger)
			continue
		}

		d.Metrics.QueryFailures.WithLabelValues(string(ledger)).Inc()

		warning, exists := d.ledgerWarnings[ledger]
		if !exists {
			warning = &LedgerWarning{Ledger: ledger}
			d.ledgerWarnings[ledger] = warning
		}
		warning.ConsecutiveFailures++
		warning.Message = failure.Error()
		warning.Escalated = warning.ConsecutiveFailures >= d.opts.FailureThreshold
	}

	d.Metrics.ConnectedLedgers.Set(float64(len(result.Balances) - len(result.Failures)))
}
