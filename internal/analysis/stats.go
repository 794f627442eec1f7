package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/sample"
)

// stats holds supplementary figures for the alert message. None of them
// participate in the alert trigger.
type stats struct {
	volatility     decimal.Decimal
	maxHourlySwing decimal.Decimal
	slope          float64
}

// windowStats groups the series into hourly buckets and derives mean-based
// diagnostics: volatility (mean of the hourly standard deviations), the max
// percent swing between consecutive hourly means, and the least-squares
// slope over the hourly means.
func windowStats(samples []sample.PriceSample, metric Metric) stats {
	buckets := make(map[time.Time][]float64)
	for _, s := range samples {
		hour := s.Timestamp.UTC().Truncate(time.Hour)
		buckets[hour] = append(buckets[hour], metricValue(s, metric).InexactFloat64())
	}

	hours := make([]time.Time, 0, len(buckets))
	for hour := range buckets {
		hours = append(hours, hour)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	means := make([]float64, len(hours))
	stddevs := make([]float64, len(hours))
	for i, hour := range hours {
		means[i], stddevs[i] = meanStddev(buckets[hour])
	}

	result := stats{}

	if len(stddevs) > 0 {
		total := 0.0
		for _, sd := range stddevs {
			total += sd
		}
		result.volatility = decimal.NewFromFloat(total / float64(len(stddevs))).Round(4)
	}

	maxSwing := 0.0
	for i := 1; i < len(means); i++ {
		if means[i-1] == 0 {
			continue
		}
		swing := math.Abs((means[i] - means[i-1]) / means[i-1] * 100)
		if swing > maxSwing {
			maxSwing = swing
		}
	}
	result.maxHourlySwing = decimal.NewFromFloat(maxSwing).Round(4)

	result.slope = leastSquaresSlope(means)

	return result
}

func meanStddev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values) - 1)

	return mean, math.Sqrt(variance)
}

// leastSquaresSlope fits y = a + b*x over x = 0..n-1 and returns b.
func leastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
