package fetcher

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrSourceUnavailable indicates a price feed could not be reached or parsed
// after all applicable attempts. Callers skip persistence for the cycle.
var ErrSourceUnavailable = errors.New("fetcher: source unavailable")

// BitcoinRateFetcher retrieves the BTC/USD spot price.
type BitcoinRateFetcher interface {
	FetchBitcoinUSD(ctx context.Context) (decimal.Decimal, error)
}

// P2PRateFetcher retrieves the aggregated USDT/BOB order book price.
type P2PRateFetcher interface {
	FetchUSDTBOB(ctx context.Context) (decimal.Decimal, error)
}
