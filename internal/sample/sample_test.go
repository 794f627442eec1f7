package sample

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComposeProduct(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	btc := decimal.NewFromFloat(84250.55)
	usdt := decimal.NewFromFloat(13.42)

	s, err := Compose(ts, btc, usdt)
	if err != nil {
		t.Fatalf("Compose 应成功: %v", err)
	}

	want := btc.Mul(usdt)
	if !s.BTCBOB.Equal(want) {
		t.Fatalf("btc_bob 应为 %s, 实际 %s", want, s.BTCBOB)
	}
	if !s.Timestamp.Equal(ts) {
		t.Fatalf("timestamp 不应被改写")
	}
}

func TestComposeRejectsNonPositive(t *testing.T) {
	ts := time.Now()
	cases := []struct {
		name string
		btc  decimal.Decimal
		usdt decimal.Decimal
	}{
		{"zero btc", decimal.Zero, decimal.NewFromInt(13)},
		{"zero usdt", decimal.NewFromInt(80000), decimal.Zero},
		{"negative btc", decimal.NewFromInt(-1), decimal.NewFromInt(13)},
		{"negative usdt", decimal.NewFromInt(80000), decimal.NewFromInt(-13)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compose(ts, tc.btc, tc.usdt); !errors.Is(err, ErrInvalidQuote) {
				t.Fatalf("期望 ErrInvalidQuote, 实际 %v", err)
			}
		})
	}
}

func TestQuoteFromFloatNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := QuoteFromFloat(v); !errors.Is(err, ErrInvalidQuote) {
			t.Fatalf("非有限值 %v 应返回 ErrInvalidQuote, 实际 %v", v, err)
		}
	}

	d, err := QuoteFromFloat(13.37)
	if err != nil {
		t.Fatalf("有限值不应报错: %v", err)
	}
	if !d.Equal(decimal.NewFromFloat(13.37)) {
		t.Fatalf("转换结果不正确: %s", d)
	}
}
