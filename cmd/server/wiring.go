package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/ledgerdash-backend/internal/adapter/ledger/evm"
	"github.com/simaogato/ledgerdash-backend/internal/adapter/ledger/horizon"
	"github.com/simaogato/ledgerdash-backend/internal/adapter/oracle/httpfeed"
	"github.com/simaogato/ledgerdash-backend/internal/adapter/oracle/simulated"
	"github.com/simaogato/ledgerdash-backend/internal/adapter/oracle/stream"
	"github.com/simaogato/ledgerdash-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/ledgerdash-backend/internal/adapter/resilience"
	"github.com/simaogato/ledgerdash-backend/internal/config"
	"github.com/simaogato/ledgerdash-backend/internal/domain"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/alert"
)

// buildLedgers creates a guarded client for every configured ledger
// The returned func releases connections; it is safe to call when nothing was opened.
func buildLedgers(ctx context.Context, cfg *config.Config, log zerolog.Logger) (map[domain.LedgerID]domain.LedgerClient, func(), error) {
	ledgers := make(map[domain.LedgerID]domain.LedgerClient)
	var closers []func()

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	guard := func(ledger domain.LedgerID, client domain.LedgerClient) {
		ledgers[ledger] = resilience.WrapLedger(client, resilience.Settings{
			Name:             string(ledger),
			FailureThreshold: uint32(cfg.FailureThreshold),
			OpenTimeout:      cfg.BreakerTimeout,
		}, log)
	}

	if cfg.HorizonURL != "" {
		guard(domain.LedgerStellar, horizon.NewClient(cfg.HorizonURL, horizon.NativeAsset, cfg.QueryTimeout))
	}

	if cfg.EVMRPCURL != "" {
		client, err := evm.Dial(ctx, cfg.EVMRPCURL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		guard(domain.LedgerEVM, client)
	}

	if cfg.DBConnStr != "" {
		db, err := postgres.NewDB(ctx, cfg.DBConnStr)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		guard(domain.LedgerHyperPi, postgres.NewLedgerBalanceRepository(db))
	}

	if len(ledgers) == 0 {
		log.Warn().Msg("No ledgers configured; balances will stay empty")
	}

	return ledgers, closeAll, nil
}

// buildOracle creates the configured price oracle behind a breaker and limiter
func buildOracle(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domain.PriceOracle, func(), error) {
	var (
		oracle  domain.PriceOracle
		closeFn = func() {}
	)

	switch cfg.OracleKind {
	case config.OracleSimulated:
		oracle = simulated.New(rand.New(rand.NewSource(time.Now().UnixNano())), simulated.DefaultScale)
	case config.OracleHTTP:
		oracle = httpfeed.New(cfg.OracleURL, cfg.QueryTimeout)
	case config.OracleStream:
		// A price older than three ticks is not worth recording
		feed, err := stream.Dial(ctx, cfg.OracleURL, 3*cfg.PriceInterval, log)
		if err != nil {
			return nil, nil, err
		}
		oracle = feed
		closeFn = func() { _ = feed.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown oracle kind %q", cfg.OracleKind)
	}

	guarded := resilience.WrapOracle(oracle, resilience.Settings{
		Name:             "oracle",
		FailureThreshold: uint32(cfg.FailureThreshold),
		OpenTimeout:      cfg.BreakerTimeout,
		RPS:              cfg.OracleRPS,
		Burst:            1,
	}, log)

	return guarded, closeFn, nil
}

// buildEvaluator selects the alert rule
func buildEvaluator(cfg *config.Config) domain.AlertEvaluator {
	switch cfg.AlertRule {
	case config.AlertRuleZScore:
		return alert.NewZScoreEvaluator(cfg.ZScoreThreshold, cfg.ZScoreMinSamples)
	case config.AlertRuleDeviation:
		return alert.NewDeviationEvaluator(cfg.DeviationThreshold)
	default:
		return alert.NewProbabilisticEvaluator(rand.New(rand.NewSource(time.Now().UnixNano())), cfg.AlertProbability)
	}
}
