package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/sample"
)

type fakeStore struct {
	samples []sample.PriceSample
	err     error
}

func (f *fakeStore) InsertSample(ctx context.Context, s sample.PriceSample) error { return nil }

func (f *fakeStore) ListSamplesSince(ctx context.Context, since time.Time, limit int) ([]sample.PriceSample, error) {
	return f.samples, f.err
}

func (f *fakeStore) ListRecentSamples(ctx context.Context, limit int) ([]sample.PriceSample, error) {
	return f.samples, f.err
}

func (f *fakeStore) CountSamples(ctx context.Context) (int64, error) {
	return int64(len(f.samples)), f.err
}

func makeSamples(t *testing.T, usdt, btc []float64) []sample.PriceSample {
	t.Helper()
	if len(usdt) != len(btc) {
		t.Fatal("usdt 与 btc 序列长度必须一致")
	}

	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	samples := make([]sample.PriceSample, len(usdt))
	for i := range usdt {
		s, err := sample.Compose(start.Add(time.Duration(i)*10*time.Minute),
			decimal.NewFromFloat(btc[i]), decimal.NewFromFloat(usdt[i]))
		if err != nil {
			t.Fatalf("构造样本失败: %v", err)
		}
		samples[i] = s
	}
	return samples
}

func newTestAnalyzer(store *fakeStore) *Analyzer {
	return New(store, Options{
		Window:           4 * time.Hour,
		MaxSamples:       1000,
		USDTBOBThreshold: decimal.NewFromInt(2),
		BTCUSDThreshold:  decimal.NewFromInt(5),
	}, zerolog.Nop())
}

func TestAnalyzeUSDTBOBRising(t *testing.T) {
	store := &fakeStore{samples: makeSamples(t, []float64{100, 103}, []float64{40000, 40000})}
	alerts, err := newTestAnalyzer(store).Analyze(context.Background())
	if err != nil {
		t.Fatalf("分析不应报错: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("期望恰好 1 条告警, 实际 %d", len(alerts))
	}

	alert := alerts[0]
	if alert.Metric != MetricUSDTBOB {
		t.Fatalf("期望 usdt_bob 触发, 实际 %s", alert.Metric)
	}
	if alert.Direction != DirectionRising {
		t.Fatalf("3%% 上涨应标记 rising, 实际 %s", alert.Direction)
	}
	if !alert.PercentChange.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("期望变化 3%%, 实际 %s", alert.PercentChange)
	}
	if alert.Recommendation == "" {
		t.Fatal("告警应带有建议文本")
	}
}

func TestAnalyzeBelowThreshold(t *testing.T) {
	store := &fakeStore{samples: makeSamples(t, []float64{100, 101}, []float64{40000, 40100})}
	alerts, err := newTestAnalyzer(store).Analyze(context.Background())
	if err != nil {
		t.Fatalf("分析不应报错: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("1%% 变化不应触发告警, 实际 %d 条", len(alerts))
	}
}

func TestAnalyzeBTCUSDAtBoundary(t *testing.T) {
	// 40000 → 42000 正好 5%，阈值为 ≥5% 应触发
	store := &fakeStore{samples: makeSamples(t, []float64{100, 100}, []float64{40000, 42000})}
	alerts, err := newTestAnalyzer(store).Analyze(context.Background())
	if err != nil {
		t.Fatalf("分析不应报错: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("5%% 边界应触发告警, 实际 %d 条", len(alerts))
	}
	if alerts[0].Metric != MetricBTCUSD {
		t.Fatalf("期望 btc_usd 触发, 实际 %s", alerts[0].Metric)
	}
	if !alerts[0].PercentChange.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("期望变化 5%%, 实际 %s", alerts[0].PercentChange)
	}
}

func TestAnalyzeBothMetricsFire(t *testing.T) {
	store := &fakeStore{samples: makeSamples(t, []float64{100, 95}, []float64{40000, 44000})}
	alerts, err := newTestAnalyzer(store).Analyze(context.Background())
	if err != nil {
		t.Fatalf("分析不应报错: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("两个指标都应触发, 实际 %d 条", len(alerts))
	}
	if alerts[0].Direction != DirectionFalling {
		t.Fatalf("usdt_bob 下跌应标记 falling, 实际 %s", alerts[0].Direction)
	}
}

func TestAnalyzeZeroBaseline(t *testing.T) {
	// 零基准无法计算百分比，必须静默跳过而不是除零
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	samples := []sample.PriceSample{
		{Timestamp: start, BTCUSD: decimal.NewFromInt(40000), USDTBOB: decimal.Zero},
		{Timestamp: start.Add(10 * time.Minute), BTCUSD: decimal.NewFromInt(40000), USDTBOB: decimal.NewFromInt(13)},
	}
	store := &fakeStore{samples: samples}

	alerts, err := newTestAnalyzer(store).Analyze(context.Background())
	if err != nil {
		t.Fatalf("零基准不应报错: %v", err)
	}
	for _, alert := range alerts {
		if alert.Metric == MetricUSDTBOB {
			t.Fatal("零基准指标不应触发告警")
		}
	}
}

func TestAnalyzeSingleSample(t *testing.T) {
	store := &fakeStore{samples: makeSamples(t, []float64{100}, []float64{40000})}
	alerts, err := newTestAnalyzer(store).Analyze(context.Background())
	if err != nil {
		t.Fatalf("样本不足不应是错误: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("单样本不应产生告警, 实际 %d 条", len(alerts))
	}
}

func TestAnalyzeStoreFailure(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &fakeStore{err: storeErr}

	alerts, err := newTestAnalyzer(store).Analyze(context.Background())
	if !errors.Is(err, storeErr) {
		t.Fatalf("存储故障应向上传播: %v", err)
	}
	if alerts != nil {
		t.Fatal("存储故障时不应产生告警")
	}
}

func TestRecommendationWording(t *testing.T) {
	if got := RecommendationFor(MetricUSDTBOB, DirectionFalling); got != "Possible BUY opportunity for USDT (price low)" {
		t.Fatalf("下跌建议不正确: %s", got)
	}
	if got := RecommendationFor(MetricBTCUSD, DirectionRising); got != "Possible SELL opportunity for BTC (price high)" {
		t.Fatalf("上涨建议不正确: %s", got)
	}
}
