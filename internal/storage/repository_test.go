package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto-bob-alerts/internal/sample"
)

func TestSampleDocRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 10, 0, 0, time.UTC)
	original, err := sample.Compose(ts, decimal.NewFromFloat(84250.55), decimal.NewFromFloat(13.42))
	if err != nil {
		t.Fatalf("Compose 应成功: %v", err)
	}

	doc := sampleDoc{
		Timestamp: original.Timestamp.UTC(),
		BTCUSD:    original.BTCUSD.String(),
		USDTBOB:   original.USDTBOB.String(),
		BTCBOB:    original.BTCBOB.String(),
		CreatedAt: time.Now().UTC(),
	}

	restored, err := docToSample(doc)
	if err != nil {
		t.Fatalf("docToSample 不应报错: %v", err)
	}

	if !restored.Timestamp.Equal(original.Timestamp) {
		t.Fatalf("timestamp 往返后不一致: %s vs %s", restored.Timestamp, original.Timestamp)
	}
	if !restored.BTCUSD.Equal(original.BTCUSD) ||
		!restored.USDTBOB.Equal(original.USDTBOB) ||
		!restored.BTCBOB.Equal(original.BTCBOB) {
		t.Fatalf("价格字段往返后不一致: %+v vs %+v", restored, original)
	}
}

func TestDocToSampleMalformed(t *testing.T) {
	doc := sampleDoc{BTCUSD: "not-a-number", USDTBOB: "13.42", BTCBOB: "1"}
	if _, err := docToSample(doc); err == nil {
		t.Fatal("非法价格字符串应报错")
	}
}

func TestStoreNotConfigured(t *testing.T) {
	var s *Store
	if err := s.InsertSample(context.Background(), sample.PriceSample{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("nil store 应返回 ErrNotConfigured, 实际 %v", err)
	}
	if _, err := s.ListRecentSamples(context.Background(), 5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("nil store 应返回 ErrNotConfigured, 实际 %v", err)
	}
}
