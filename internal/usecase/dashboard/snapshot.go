package dashboard

import (
	"sort"
	"time"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// LedgerWarning is surfaced when a ledger query failed on the last connect or refresh
type LedgerWarning struct {
	Ledger              domain.LedgerID
	Message             string
	ConsecutiveFailures int
	Escalated           bool // Reached the failure threshold; shown prominently
}

// FeedStatus tracks consecutive price sample failures
type FeedStatus struct {
	ConsecutiveFailures int
	Degraded            bool // Reached the failure threshold
	LastError           string
}

// Pulse is the liveness signal emitted on every pulse tick
type Pulse struct {
	Seq uint64
	At  time.Time
}

// Snapshot is an immutable copy of everything the rendering layer observes
type Snapshot struct {
	Version        uint64
	Active         bool
	Account        *domain.Account // nil when disconnected
	Balances       domain.Balances
	PriceHistory   []domain.PriceSample
	Alert          domain.AlertState
	LedgerWarnings []LedgerWarning
	Feed           FeedStatus
	Pulse          Pulse
}

// Connected reports whether an account is connected
func (s Snapshot) Connected() bool {
	return s.Account != nil
}

// Snapshot returns the current observable state
func (d *DashboardService) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Subscribe returns a channel that receives the latest snapshot after every state change
// The channel holds one pending snapshot; a slow reader only ever sees the newest one.
// The returned func unsubscribes and closes the channel; it is safe to call twice.
func (d *DashboardService) Subscribe() (<-chan Snapshot, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSubscriber
	d.nextSubscriber++

	ch := make(chan Snapshot, 1)
	ch <- d.snapshotLocked()
	d.subscribers[id] = ch

	unsubscribe := func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if sub, ok := d.subscribers[id]; ok {
			delete(d.subscribers, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// publishLocked bumps the version and fans the new snapshot out to subscribers
func (d *DashboardService) publishLocked() {
	d.version++
	snap := d.snapshotLocked()

	for _, ch := range d.subscribers {
		select {
		case ch <- snap:
		default:
			// Replace the stale pending snapshot
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (d *DashboardService) snapshotLocked() Snapshot {
	warnings := make([]LedgerWarning, 0, len(d.ledgerWarnings))
	for _, warning := range d.ledgerWarnings {
		warnings = append(warnings, *warning)
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Ledger < warnings[j].Ledger })

	return Snapshot{
		Version:        d.version,
		Active:         d.active,
		Account:        d.Session.Account(),
		Balances:       d.Session.Balances(),
		PriceHistory:   d.history.Samples(),
		Alert:          d.alert,
		LedgerWarnings: warnings,
		Feed:           d.feed,
		Pulse:          d.pulse,
	}
}
