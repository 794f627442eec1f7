package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"crypto-bob-alerts/internal/alerting"
	"crypto-bob-alerts/internal/analysis"
	"crypto-bob-alerts/internal/config"
	"crypto-bob-alerts/internal/fetcher"
	"crypto-bob-alerts/internal/sample"
	"crypto-bob-alerts/internal/scheduler"
	"crypto-bob-alerts/internal/storage"
)

// Service orchestrates the acquisition and analysis cycles.
type Service struct {
	cfg      *config.Config
	bitcoin  fetcher.BitcoinRateFetcher
	p2p      fetcher.P2PRateFetcher
	store    storage.SampleStore
	analyzer *analysis.Analyzer
	notifier alerting.Notifier
	logger   zerolog.Logger
	alertsOn bool
}

// New constructs the monitoring service.
func New(cfg *config.Config, bitcoin fetcher.BitcoinRateFetcher, p2p fetcher.P2PRateFetcher, store storage.SampleStore, analyzer *analysis.Analyzer, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		bitcoin:  bitcoin,
		p2p:      p2p,
		store:    store,
		analyzer: analyzer,
		notifier: notifier,
		logger:   logger.With().Str("component", "service").Logger(),
		alertsOn: cfg.Alerting.Enabled,
	}
}

// Run starts both fixed-interval loops and blocks until ctx is cancelled.
// Each loop is independent: a failed cycle never blocks the next tick of
// either loop.
func (s *Service) Run(ctx context.Context) error {
	acquisition := scheduler.New(scheduler.Options{
		Name:         "acquisition",
		Interval:     s.cfg.Scheduler.SampleInterval,
		AlignToStart: s.cfg.Scheduler.AlignToBucket,
		RunAtStart:   s.cfg.Scheduler.RunAtStart,
		StartupDelay: s.cfg.Scheduler.StartupDelay,
	}, s.logger)

	trendAnalysis := scheduler.New(scheduler.Options{
		Name:         "analysis",
		Interval:     s.cfg.Scheduler.AnalysisInterval,
		AlignToStart: s.cfg.Scheduler.AlignToBucket,
		RunAtStart:   s.cfg.Scheduler.RunAtStart,
		StartupDelay: s.cfg.Scheduler.StartupDelay,
	}, s.logger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = acquisition.Run(ctx, s.ProcessCycle)
	}()
	go func() {
		defer wg.Done()
		_ = trendAnalysis.Run(ctx, s.ProcessAnalysis)
	}()
	wg.Wait()

	return ctx.Err()
}

// ProcessCycle executes one acquisition cycle: fetch both quotes, compose
// the sample, persist it. Any failure skips persistence for this cycle only.
func (s *Service) ProcessCycle(ctx context.Context, bucket time.Time) error {
	btcUSD, err := s.bitcoin.FetchBitcoinUSD(ctx)
	if err != nil {
		return fmt.Errorf("fetch btc/usd: %w", err)
	}

	usdtBOB, err := s.p2p.FetchUSDTBOB(ctx)
	if err != nil {
		return fmt.Errorf("fetch usdt/bob: %w", err)
	}

	ps, err := sample.Compose(bucket, btcUSD, usdtBOB)
	if err != nil {
		return fmt.Errorf("compose sample: %w", err)
	}

	if s.store != nil {
		if err := s.store.InsertSample(ctx, ps); err != nil {
			return fmt.Errorf("persist sample: %w", err)
		}
	}

	s.logger.Info().
		Time("bucket", bucket).
		Str("btc_usd", ps.BTCUSD.String()).
		Str("usdt_bob", ps.USDTBOB.String()).
		Str("btc_bob", ps.BTCBOB.String()).
		Msg("sample recorded")

	return nil
}

// ProcessAnalysis executes one analysis pass and dispatches any alerts.
// Notification failures are logged and swallowed; they never abort the pass.
func (s *Service) ProcessAnalysis(ctx context.Context, bucket time.Time) error {
	if s.analyzer == nil {
		return nil
	}

	alerts, err := s.analyzer.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analysis pass: %w", err)
	}

	for _, alert := range alerts {
		if !s.alertsOn || s.notifier == nil {
			s.logger.Info().
				Str("metric", string(alert.Metric)).
				Str("percent_change", alert.PercentChange.StringFixed(2)).
				Msg("alert detected but alerting disabled")
			continue
		}

		if err := s.notifier.Notify(ctx, alerting.FromTrendAlert(alert)); err != nil {
			s.logger.Error().Err(err).
				Str("metric", string(alert.Metric)).
				Msg("failed to dispatch alert")
		}
	}

	return nil
}
