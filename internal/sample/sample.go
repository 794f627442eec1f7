package sample

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuote indicates a composer input was non-positive or non-finite.
var ErrInvalidQuote = errors.New("sample: invalid quote")

// PriceSample is one persisted record per acquisition cycle.
// BTCBOB is always recomputed as BTCUSD * USDTBOB and never edited independently.
type PriceSample struct {
	Timestamp time.Time
	BTCUSD    decimal.Decimal
	USDTBOB   decimal.Decimal
	BTCBOB    decimal.Decimal
}

// Compose combines the two quotes into one record with the derived BTC/BOB rate.
func Compose(ts time.Time, btcUSD, usdtBOB decimal.Decimal) (PriceSample, error) {
	if !btcUSD.IsPositive() {
		return PriceSample{}, fmt.Errorf("%w: btc_usd %s", ErrInvalidQuote, btcUSD.String())
	}
	if !usdtBOB.IsPositive() {
		return PriceSample{}, fmt.Errorf("%w: usdt_bob %s", ErrInvalidQuote, usdtBOB.String())
	}

	return PriceSample{
		Timestamp: ts,
		BTCUSD:    btcUSD,
		USDTBOB:   usdtBOB,
		BTCBOB:    btcUSD.Mul(usdtBOB),
	}, nil
}

// QuoteFromFloat converts a raw float quote, rejecting NaN and infinities
// before they can reach the decimal constructor.
func QuoteFromFloat(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Decimal{}, fmt.Errorf("%w: non-finite value", ErrInvalidQuote)
	}
	return decimal.NewFromFloat(v), nil
}
