package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/sample"
	"crypto-bob-alerts/internal/storage"
)

// Metric identifies a tracked price series.
type Metric string

const (
	MetricUSDTBOB Metric = "usdt_bob"
	MetricBTCUSD  Metric = "btc_usd"
)

// Asset returns the human-readable pair for the metric.
func (m Metric) Asset() string {
	switch m {
	case MetricUSDTBOB:
		return "USDT/BOB"
	case MetricBTCUSD:
		return "BTC/USD"
	default:
		return string(m)
	}
}

// Direction classifies the movement of a series across the window.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
)

// TrendAlert is produced when a metric crosses its threshold. Ephemeral,
// never persisted.
type TrendAlert struct {
	Metric         Metric
	Direction      Direction
	PercentChange  decimal.Decimal
	ThresholdPct   decimal.Decimal
	FirstValue     decimal.Decimal
	LastValue      decimal.Decimal
	Volatility     decimal.Decimal
	MaxHourlySwing decimal.Decimal
	Slope          float64
	SampleCount    int
	WindowStart    time.Time
	WindowEnd      time.Time
	Recommendation string
}

// Options tune the analyzer.
type Options struct {
	Window           time.Duration
	MaxSamples       int
	USDTBOBThreshold decimal.Decimal
	BTCUSDThreshold  decimal.Decimal
}

// Analyzer periodically compares recent samples and decides whether price
// movement warrants an alert.
type Analyzer struct {
	store  storage.SampleStore
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs an Analyzer reading from the given store.
func New(store storage.SampleStore, opts Options, logger zerolog.Logger) *Analyzer {
	if opts.Window <= 0 {
		opts.Window = 4 * time.Hour
	}
	return &Analyzer{
		store:  store,
		opts:   opts,
		logger: logger.With().Str("component", "trend_analyzer").Logger(),
		now:    time.Now,
	}
}

// Analyze runs one pass: load the recent window, compare each tracked
// metric, return the alerts that fired. A store read failure aborts the
// pass with no alerts; too few samples is not an error.
func (a *Analyzer) Analyze(ctx context.Context) ([]TrendAlert, error) {
	since := a.now().UTC().Add(-a.opts.Window)

	a.logger.Debug().Time("since", since).Msg("loading sample window")
	samples, err := a.store.ListSamplesSince(ctx, since, a.opts.MaxSamples)
	if err != nil {
		return nil, fmt.Errorf("load sample window: %w", err)
	}

	if len(samples) < 2 {
		a.logger.Info().Int("samples", len(samples)).Msg("not enough samples for trend comparison")
		return nil, nil
	}

	var alerts []TrendAlert
	for _, tracked := range []struct {
		metric    Metric
		threshold decimal.Decimal
	}{
		{MetricUSDTBOB, a.opts.USDTBOBThreshold},
		{MetricBTCUSD, a.opts.BTCUSDThreshold},
	} {
		alert, fired := analyzeMetric(samples, tracked.metric, tracked.threshold)
		if fired {
			a.logger.Warn().
				Str("metric", string(alert.Metric)).
				Str("direction", string(alert.Direction)).
				Str("percent_change", alert.PercentChange.StringFixed(2)).
				Msg("significant trend detected")
			alerts = append(alerts, alert)
		} else {
			a.logger.Info().Str("metric", string(tracked.metric)).Msg("no significant trend")
		}
	}

	return alerts, nil
}

// analyzeMetric compares the oldest and newest value of one series against
// its threshold. Thresholds apply to the absolute percent change; either
// direction can fire.
func analyzeMetric(samples []sample.PriceSample, metric Metric, threshold decimal.Decimal) (TrendAlert, bool) {
	if len(samples) < 2 || threshold.IsZero() {
		return TrendAlert{}, false
	}

	first := metricValue(samples[0], metric)
	last := metricValue(samples[len(samples)-1], metric)

	// comparison against a zero baseline is undefined; fail closed
	if first.IsZero() {
		return TrendAlert{}, false
	}

	hundred := decimal.NewFromInt(100)
	change := last.Sub(first).Div(first).Mul(hundred)

	if change.Abs().LessThan(threshold) {
		return TrendAlert{}, false
	}

	direction := DirectionRising
	if change.IsNegative() {
		direction = DirectionFalling
	}

	stats := windowStats(samples, metric)

	return TrendAlert{
		Metric:         metric,
		Direction:      direction,
		PercentChange:  change,
		ThresholdPct:   threshold,
		FirstValue:     first,
		LastValue:      last,
		Volatility:     stats.volatility,
		MaxHourlySwing: stats.maxHourlySwing,
		Slope:          stats.slope,
		SampleCount:    len(samples),
		WindowStart:    samples[0].Timestamp,
		WindowEnd:      samples[len(samples)-1].Timestamp,
		Recommendation: RecommendationFor(metric, direction),
	}, true
}

// RecommendationFor derives the advisory text. Pure function of direction
// and metric.
func RecommendationFor(metric Metric, direction Direction) string {
	asset := "USDT"
	if metric == MetricBTCUSD {
		asset = "BTC"
	}
	if direction == DirectionRising {
		return fmt.Sprintf("Possible SELL opportunity for %s (price high)", asset)
	}
	return fmt.Sprintf("Possible BUY opportunity for %s (price low)", asset)
}

func metricValue(s sample.PriceSample, metric Metric) decimal.Decimal {
	switch metric {
	case MetricBTCUSD:
		return s.BTCUSD
	default:
		return s.USDTBOB
	}
}
