package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/ledgerdash-backend/internal/domain"
)

// ConnectResult is the outcome of a connect or refresh
type ConnectResult struct {
	Account  *domain.Account
	Balances domain.Balances
	Failures []*domain.QueryFailure // One per ledger whose query failed, ordered by ledger
	Stale    bool                   // True when the session was reset while queries were in flight
	Reused   bool                   // True when the account was already connected; no ledger was queried
}

// SessionService holds the connected identity and its derived balances
type SessionService struct {
	Identity     domain.IdentityProvider
	Ledgers      map[domain.LedgerID]domain.LedgerClient
	QueryTimeout time.Duration

	log zerolog.Logger
	now func() time.Time

	mu         sync.Mutex
	account    *domain.Account
	balances   domain.Balances
	generation uint64 // Bumped on every connect/disconnect; stale merges are dropped
}

// NewSessionService creates a new SessionService instance
func NewSessionService(
	identity domain.IdentityProvider,
	ledgers map[domain.LedgerID]domain.LedgerClient,
	queryTimeout time.Duration,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		Identity:     identity,
		Ledgers:      ledgers,
		QueryTimeout: queryTimeout,
		log:          log.With().Str("component", "session").Logger(),
		now:          time.Now,
	}
}

// Connect generates a new identity and loads its balances from every tracked ledger
// Logic:
//   - Already connected: return the existing account unchanged
//   - Identity generation failure: ConnectionError
//   - Ledger query failures: zero balance plus a QueryFailure, never an error
func (s *SessionService) Connect(ctx context.Context) (*ConnectResult, error) {
	s.mu.Lock()
	if s.account != nil {
		result := &ConnectResult{Account: s.account, Balances: s.balances.Clone(), Reused: true}
		s.mu.Unlock()
		return result, nil
	}
	s.mu.Unlock()

	// 1. Generate identity
	identity, err := s.Identity.Generate(ctx)
	if err != nil {
		return nil, &domain.ConnectionError{Err: fmt.Errorf("failed to generate identity: %w", err)}
	}

	account, err := domain.NewAccount(identity, s.now())
	if err != nil {
		return nil, &domain.ConnectionError{Err: err}
	}

	// 2. Set the account immediately with zeroed balances
	s.mu.Lock()
	if s.account != nil {
		// Lost a race with a concurrent Connect; keep the first account
		result := &ConnectResult{Account: s.account, Balances: s.balances.Clone(), Reused: true}
		s.mu.Unlock()
		return result, nil
	}
	s.generation++
	generation := s.generation
	s.account = account
	s.balances = domain.ZeroBalances(s.ledgerIDs())
	s.mu.Unlock()

	s.log.Info().
		Str("public_key", account.PublicKey).
		Str("session_id", account.ID.String()).
		Msg("Account connected")

	// 3. Fetch balances and merge once every query has settled
	return s.loadAndMerge(ctx, account, generation), nil
}

// Refresh re-runs the balance-fetch phase for the connected account
func (s *SessionService) Refresh(ctx context.Context) (*ConnectResult, error) {
	s.mu.Lock()
	account := s.account
	generation := s.generation
	s.mu.Unlock()

	if account == nil {
		return nil, domain.ErrNotConnected
	}

	return s.loadAndMerge(ctx, account, generation), nil
}

// Disconnect clears the account and all balances
// Idempotent; queries still in flight for the old account are discarded
func (s *SessionService) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.account == nil {
		return
	}

	s.log.Info().Str("session_id", s.account.ID.String()).Msg("Account disconnected")

	s.generation++
	s.account = nil
	s.balances = nil
}

// Account returns the connected account, or nil
func (s *SessionService) Account() *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.account == nil {
		return nil
	}
	account := *s.account
	account.Addresses = s.account.Addresses.Clone()
	return &account
}

// Balances returns a copy of the current balance set (empty when disconnected)
func (s *SessionService) Balances() domain.Balances {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances == nil {
		return domain.Balances{}
	}
	return s.balances.Clone()
}

type queryOutcome struct {
	ledger domain.LedgerID
	amount decimal.Decimal
	err    error
}

// loadAndMerge queries all ledgers in parallel and merges the results in one step
func (s *SessionService) loadAndMerge(ctx context.Context, account *domain.Account, generation uint64) *ConnectResult {
	ledgers := s.ledgerIDs()
	outcomes := make([]queryOutcome, len(ledgers))

	var wg sync.WaitGroup
	for i, ledger := range ledgers {
		wg.Add(1)
		go func(i int, ledger domain.LedgerID) {
			defer wg.Done()
			amount, err := s.query(ctx, ledger, account.AddressFor(ledger))
			outcomes[i] = queryOutcome{ledger: ledger, amount: amount, err: err}
		}(i, ledger)
	}
	wg.Wait()

	balances := domain.ZeroBalances(ledgers)
	failures := make([]*domain.QueryFailure, 0)

	for _, outcome := range outcomes {
		if outcome.err != nil {
			failure := &domain.QueryFailure{Ledger: outcome.ledger, Err: outcome.err}
			failures = append(failures, failure)

			s.log.Warn().
				Err(outcome.err).
				Str("ledger", string(outcome.ledger)).
				Msg("Balance query failed, defaulting to zero")
			continue
		}
		balances[outcome.ledger] = outcome.amount
	}

	result := &ConnectResult{
		Account:  account,
		Balances: balances,
		Failures: failures,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation || s.account == nil || s.account.ID != account.ID {
		// Session was reset while queries were in flight
		result.Stale = true
		return result
	}
	s.balances = balances.Clone()

	return result
}

// query runs a single ledger query under the per-query timeout
func (s *SessionService) query(ctx context.Context, ledger domain.LedgerID, accountID string) (decimal.Decimal, error) {
	client, ok := s.Ledgers[ledger]
	if !ok || client == nil {
		return decimal.Zero, fmt.Errorf("no client configured for ledger %s", ledger)
	}

	if s.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.QueryTimeout)
		defer cancel()
	}

	amount, err := client.LoadBalance(ctx, ledger, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	return amount, nil
}

// ledgerIDs returns the tracked ledgers in a stable order
func (s *SessionService) ledgerIDs() []domain.LedgerID {
	ids := make([]domain.LedgerID, 0, len(s.Ledgers))
	for id := range s.Ledgers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
