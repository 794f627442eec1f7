package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/sample"
)

func TestLeastSquaresSlope(t *testing.T) {
	if got := leastSquaresSlope([]float64{1, 2, 3, 4}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("均匀上升序列斜率应为 1, 实际 %f", got)
	}
	if got := leastSquaresSlope([]float64{10, 8, 6}); math.Abs(got+2) > 1e-9 {
		t.Fatalf("均匀下降序列斜率应为 -2, 实际 %f", got)
	}
	if got := leastSquaresSlope([]float64{5}); got != 0 {
		t.Fatalf("单点序列斜率应为 0, 实际 %f", got)
	}
}

func TestMeanStddev(t *testing.T) {
	mean, sd := meanStddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(mean-5) > 1e-9 {
		t.Fatalf("期望均值 5, 实际 %f", mean)
	}
	// sample stddev of the classic series
	if math.Abs(sd-2.138089935) > 1e-6 {
		t.Fatalf("标准差不正确: %f", sd)
	}

	mean, sd = meanStddev([]float64{3})
	if mean != 3 || sd != 0 {
		t.Fatalf("单值桶应返回 (3, 0), 实际 (%f, %f)", mean, sd)
	}
}

func TestWindowStatsHourlySwing(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	values := []struct {
		offset time.Duration
		usdt   float64
	}{
		{0, 100},
		{30 * time.Minute, 100},
		{time.Hour, 110},
		{90 * time.Minute, 110},
		{2 * time.Hour, 105},
	}

	samples := make([]sample.PriceSample, len(values))
	for i, v := range values {
		samples[i] = sample.PriceSample{
			Timestamp: start.Add(v.offset),
			USDTBOB:   decimal.NewFromFloat(v.usdt),
			BTCUSD:    decimal.NewFromInt(40000),
		}
	}

	got := windowStats(samples, MetricUSDTBOB)

	// hourly means are 100, 110, 105: the largest consecutive swing is 100→110 = 10%
	if !got.maxHourlySwing.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("期望最大小时波动 10%%, 实际 %s", got.maxHourlySwing)
	}
	if math.Abs(got.slope-2.5) > 1e-9 {
		t.Fatalf("期望斜率 2.5, 实际 %f", got.slope)
	}
}
