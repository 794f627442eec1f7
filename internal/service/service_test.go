package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/alerting"
	"crypto-bob-alerts/internal/analysis"
	"crypto-bob-alerts/internal/config"
	"crypto-bob-alerts/internal/sample"
)

type staticBitcoinFetcher struct {
	price decimal.Decimal
	err   error
}

func (f *staticBitcoinFetcher) FetchBitcoinUSD(ctx context.Context) (decimal.Decimal, error) {
	return f.price, f.err
}

type staticP2PFetcher struct {
	price decimal.Decimal
	err   error
}

func (f *staticP2PFetcher) FetchUSDTBOB(ctx context.Context) (decimal.Decimal, error) {
	return f.price, f.err
}

type memoryStore struct {
	samples []sample.PriceSample
	err     error
}

func (m *memoryStore) InsertSample(ctx context.Context, s sample.PriceSample) error {
	if m.err != nil {
		return m.err
	}
	m.samples = append(m.samples, s)
	return nil
}

func (m *memoryStore) ListSamplesSince(ctx context.Context, since time.Time, limit int) ([]sample.PriceSample, error) {
	return m.samples, m.err
}

func (m *memoryStore) ListRecentSamples(ctx context.Context, limit int) ([]sample.PriceSample, error) {
	return m.samples, m.err
}

func (m *memoryStore) CountSamples(ctx context.Context) (int64, error) {
	return int64(len(m.samples)), m.err
}

type recordingNotifier struct {
	notified int
	err      error
}

func (r *recordingNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	r.notified++
	return r.err
}

func (r *recordingNotifier) SendText(ctx context.Context, text string) error {
	return r.err
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{
			SampleInterval:   10 * time.Minute,
			AnalysisInterval: 4 * time.Hour,
		},
		Alerting: config.AlertingConfig{Enabled: true},
	}
}

func testAnalyzer(store *memoryStore) *analysis.Analyzer {
	return analysis.New(store, analysis.Options{
		Window:           4 * time.Hour,
		MaxSamples:       1000,
		USDTBOBThreshold: decimal.NewFromInt(2),
		BTCUSDThreshold:  decimal.NewFromInt(5),
	}, zerolog.Nop())
}

func trendingSamples(t *testing.T) []sample.PriceSample {
	t.Helper()
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	values := []float64{100, 101, 103}
	samples := make([]sample.PriceSample, len(values))
	for i, v := range values {
		s, err := sample.Compose(start.Add(time.Duration(i)*time.Hour),
			decimal.NewFromInt(40000), decimal.NewFromFloat(v))
		if err != nil {
			t.Fatalf("构造样本失败: %v", err)
		}
		samples[i] = s
	}
	return samples
}

func TestProcessCyclePersistsSample(t *testing.T) {
	store := &memoryStore{}
	svc := New(testConfig(),
		&staticBitcoinFetcher{price: decimal.NewFromInt(84000)},
		&staticP2PFetcher{price: decimal.NewFromFloat(13.42)},
		store, nil, nil, zerolog.Nop())

	bucket := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := svc.ProcessCycle(context.Background(), bucket); err != nil {
		t.Fatalf("采集周期应成功: %v", err)
	}

	if len(store.samples) != 1 {
		t.Fatalf("应写入 1 条样本, 实际 %d", len(store.samples))
	}
	got := store.samples[0]
	if !got.BTCBOB.Equal(decimal.NewFromInt(84000).Mul(decimal.NewFromFloat(13.42))) {
		t.Fatalf("btc_bob 派生值不正确: %s", got.BTCBOB)
	}
}

func TestProcessCycleSkipsPersistOnSourceFailure(t *testing.T) {
	store := &memoryStore{}
	svc := New(testConfig(),
		&staticBitcoinFetcher{err: errors.New("unreachable")},
		&staticP2PFetcher{price: decimal.NewFromFloat(13.42)},
		store, nil, nil, zerolog.Nop())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err == nil {
		t.Fatal("行情源故障应返回错误")
	}
	if len(store.samples) != 0 {
		t.Fatalf("行情源故障时不应写入样本, 实际 %d 条", len(store.samples))
	}
}

func TestProcessCycleStoreFailure(t *testing.T) {
	store := &memoryStore{err: errors.New("connection reset")}
	svc := New(testConfig(),
		&staticBitcoinFetcher{price: decimal.NewFromInt(84000)},
		&staticP2PFetcher{price: decimal.NewFromFloat(13.42)},
		store, nil, nil, zerolog.Nop())

	if err := svc.ProcessCycle(context.Background(), time.Now()); err == nil {
		t.Fatal("存储故障应让当前周期失败")
	}
}

func TestProcessAnalysisNotifies(t *testing.T) {
	store := &memoryStore{samples: trendingSamples(t)}
	notifier := &recordingNotifier{}
	svc := New(testConfig(), nil, nil, store, testAnalyzer(store), notifier, zerolog.Nop())

	if err := svc.ProcessAnalysis(context.Background(), time.Now()); err != nil {
		t.Fatalf("分析周期应成功: %v", err)
	}
	if notifier.notified != 1 {
		t.Fatalf("应发送 1 条告警, 实际 %d", notifier.notified)
	}
}

func TestProcessAnalysisSwallowsDeliveryFailure(t *testing.T) {
	store := &memoryStore{samples: trendingSamples(t)}
	notifier := &recordingNotifier{err: alerting.ErrDeliveryFailed}
	svc := New(testConfig(), nil, nil, store, testAnalyzer(store), notifier, zerolog.Nop())

	// 投递失败必须被吞掉，分析与调度不受影响
	if err := svc.ProcessAnalysis(context.Background(), time.Now()); err != nil {
		t.Fatalf("投递失败不应让分析周期失败: %v", err)
	}
	if notifier.notified != 1 {
		t.Fatalf("通知应被尝试一次, 实际 %d", notifier.notified)
	}
}

func TestProcessAnalysisStoreFailureReturnsNoAlerts(t *testing.T) {
	store := &memoryStore{err: errors.New("server selection timeout")}
	notifier := &recordingNotifier{}
	svc := New(testConfig(), nil, nil, store, testAnalyzer(store), notifier, zerolog.Nop())

	if err := svc.ProcessAnalysis(context.Background(), time.Now()); err == nil {
		t.Fatal("存储读取故障应让本次分析失败")
	}
	if notifier.notified != 0 {
		t.Fatalf("存储故障时不应发送告警, 实际 %d", notifier.notified)
	}
}

func TestProcessAnalysisAlertingDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Alerting.Enabled = false

	store := &memoryStore{samples: trendingSamples(t)}
	notifier := &recordingNotifier{}
	svc := New(cfg, nil, nil, store, testAnalyzer(store), notifier, zerolog.Nop())

	if err := svc.ProcessAnalysis(context.Background(), time.Now()); err != nil {
		t.Fatalf("分析周期应成功: %v", err)
	}
	if notifier.notified != 0 {
		t.Fatalf("告警关闭时不应发送通知, 实际 %d", notifier.notified)
	}
}
