package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const simplePricePath = "/simple/price"

// BitcoinOptions parameterise the CoinGecko fetcher.
type BitcoinOptions struct {
	BaseURL    string
	CoinID     string
	VsCurrency string
	Timeout    time.Duration
	UserAgent  string
}

// Bitcoin fetches the BTC/USD spot quote from CoinGecko. Single attempt,
// no retry: a failure here skips the acquisition cycle.
type Bitcoin struct {
	opts    BitcoinOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBitcoin constructs a CoinGecko spot price fetcher.
func NewBitcoin(opts BitcoinOptions, logger zerolog.Logger) *Bitcoin {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	if opts.CoinID == "" {
		opts.CoinID = "bitcoin"
	}
	if opts.VsCurrency == "" {
		opts.VsCurrency = "usd"
	}

	return &Bitcoin{
		opts:    opts,
		logger:  logger.With().Str("component", "bitcoin_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchBitcoinUSD retrieves the current BTC/USD price.
func (b *Bitcoin) FetchBitcoinUSD(ctx context.Context) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("ids", b.opts.CoinID)
	query.Set("vs_currencies", b.opts.VsCurrency)
	endpoint := b.baseURL + simplePricePath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("%w: coingecko status %d: %s", ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	// response shape: {"bitcoin":{"usd":84321.5}}
	var parsed map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}

	price, ok := parsed[b.opts.CoinID][b.opts.VsCurrency]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s/%s missing from response", ErrSourceUnavailable, b.opts.CoinID, b.opts.VsCurrency)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: non-positive price %s", ErrSourceUnavailable, price.String())
	}

	b.logger.Debug().Str("price_usd", price.String()).Msg("bitcoin price fetched")
	return price, nil
}

var _ BitcoinRateFetcher = (*Bitcoin)(nil)
