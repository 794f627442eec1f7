package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/alerting"
	"crypto-bob-alerts/internal/analysis"
	"crypto-bob-alerts/internal/config"
	"crypto-bob-alerts/internal/fetcher"
	"crypto-bob-alerts/internal/service"
	"crypto-bob-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetchers() (fetcher.BitcoinRateFetcher, fetcher.P2PRateFetcher) {
	bitcoin := fetcher.NewBitcoin(fetcher.BitcoinOptions{
		BaseURL:    a.Config.CoinGecko.BaseURL,
		CoinID:     a.Config.CoinGecko.CoinID,
		VsCurrency: a.Config.CoinGecko.VsCurrency,
		Timeout:    a.Config.CoinGecko.RequestTimeout,
		UserAgent:  a.Config.CoinGecko.UserAgent,
	}, a.Logger)

	p2p := fetcher.NewP2P(fetcher.P2POptions{
		BaseURL:      a.Config.P2P.BaseURL,
		Asset:        a.Config.P2P.Asset,
		Fiat:         a.Config.P2P.Fiat,
		TradeType:    a.Config.P2P.TradeType,
		Rows:         a.Config.P2P.Rows,
		TopOffers:    a.Config.P2P.TopOffers,
		OnlyVerified: a.Config.P2P.OnlyVerified,
		MaxAttempts:  a.Config.P2P.MaxAttempts,
		RetryBackoff: a.Config.P2P.RetryBackoff,
		Timeout:      a.Config.P2P.RequestTimeout,
		UserAgent:    a.Config.P2P.UserAgent,
	}, a.Logger)

	return bitcoin, p2p
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newAnalyzer(store storage.SampleStore) *analysis.Analyzer {
	return analysis.New(store, analysis.Options{
		Window:           a.Config.Analysis.Window,
		MaxSamples:       a.Config.Analysis.MaxSamples,
		USDTBOBThreshold: decimal.NewFromFloat(a.Config.Analysis.USDTBOBPct),
		BTCUSDThreshold:  decimal.NewFromFloat(a.Config.Analysis.BTCUSDPct),
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	client, err := storage.NewClient(ctx, a.Config.Mongo)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(client, a.Config.Mongo.Database, a.Config.Mongo.Collection)
	closer := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store.Close(closeCtx)
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	bitcoin, p2p := a.newFetchers()
	notifier := a.newNotifier()
	if notifier == nil && a.Config.Alerting.Enabled {
		a.Logger.Warn().Msg("alerting enabled but no notification channel configured")
	}

	analyzer := a.newAnalyzer(store)
	svc := service.New(a.Config, bitcoin, p2p, store, analyzer, notifier, a.Logger)

	a.Logger.Info().
		Dur("sample_interval", a.Config.Scheduler.SampleInterval).
		Dur("analysis_interval", a.Config.Scheduler.AnalysisInterval).
		Msg("starting monitoring service")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	Since     time.Duration
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
