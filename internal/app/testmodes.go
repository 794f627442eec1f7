package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/alerting"
	"crypto-bob-alerts/internal/analysis"
	"crypto-bob-alerts/internal/sample"
)

// NotifyTest 发送一条简单的测试消息以验证 Telegram 配置。
func (a *App) NotifyTest(ctx context.Context, message string) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	if message == "" {
		message = fmt.Sprintf("bobwatcher notification test (%s UTC)", time.Now().UTC().Format(time.RFC3339))
	}

	if err := notifier.SendText(ctx, message); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "test message delivered")
	return nil
}

// SimulateAlert 用给定的旧/新价格合成一次趋势告警并走完整的渲染+投递链路。
func (a *App) SimulateAlert(ctx context.Context, metricName string, oldValue, newValue float64) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	metric := analysis.MetricUSDTBOB
	threshold := decimal.NewFromFloat(a.Config.Analysis.USDTBOBPct)
	if strings.EqualFold(metricName, string(analysis.MetricBTCUSD)) {
		metric = analysis.MetricBTCUSD
		threshold = decimal.NewFromFloat(a.Config.Analysis.BTCUSDPct)
	}

	oldDec, err := sample.QuoteFromFloat(oldValue)
	if err != nil {
		return err
	}
	newDec, err := sample.QuoteFromFloat(newValue)
	if err != nil {
		return err
	}
	if !oldDec.IsPositive() || !newDec.IsPositive() {
		return fmt.Errorf("%w: simulated values must be positive", sample.ErrInvalidQuote)
	}

	change := newDec.Sub(oldDec).Div(oldDec).Mul(decimal.NewFromInt(100))
	direction := analysis.DirectionRising
	if change.IsNegative() {
		direction = analysis.DirectionFalling
	}

	now := time.Now().UTC()
	alert := analysis.TrendAlert{
		Metric:         metric,
		Direction:      direction,
		PercentChange:  change,
		ThresholdPct:   threshold,
		FirstValue:     oldDec,
		LastValue:      newDec,
		SampleCount:    2,
		WindowStart:    now.Add(-a.Config.Analysis.Window),
		WindowEnd:      now,
		Recommendation: analysis.RecommendationFor(metric, direction),
	}

	a.Logger.Info().
		Str("metric", string(metric)).
		Str("percent_change", change.StringFixed(2)).
		Msg("dispatching simulated alert")

	return notifier.Notify(ctx, alerting.FromTrendAlert(alert))
}

// Analyze runs one full analysis pass over real stored data and prints the
// outcome. With notify set, detected trends are also pushed to Telegram.
func (a *App) Analyze(ctx context.Context, notify bool) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	analyzer := a.newAnalyzer(store)
	alerts, err := analyzer.Analyze(ctx)
	if err != nil {
		return err
	}

	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no significant trends detected")
		return nil
	}

	var notifier alerting.Notifier
	if notify {
		notifier = a.newNotifier()
		if notifier == nil {
			return errors.New("--notify 需要已配置的告警通道")
		}
	}

	for _, alert := range alerts {
		fmt.Fprintf(os.Stdout, "%s: %s %s%% (threshold %s%%): %s\n",
			alert.Metric.Asset(),
			alert.Direction,
			alert.PercentChange.StringFixed(2),
			alert.ThresholdPct.StringFixed(2),
			alert.Recommendation,
		)

		if notifier != nil {
			if err := notifier.Notify(ctx, alerting.FromTrendAlert(alert)); err != nil {
				a.Logger.Error().Err(err).Str("metric", string(alert.Metric)).Msg("failed to dispatch alert")
			}
		}
	}

	return nil
}
