package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// P2POptions parameterise the Binance P2P order book fetcher.
type P2POptions struct {
	BaseURL      string
	Asset        string
	Fiat         string
	TradeType    string
	Rows         int
	TopOffers    int
	OnlyVerified bool
	MaxAttempts  int
	RetryBackoff time.Duration
	Timeout      time.Duration
	UserAgent    string
	Sleep        SleepFunc
}

// Offer is one peer advertisement from the order book listing.
type Offer struct {
	Price     decimal.Decimal
	Available decimal.Decimal
	MinLimit  decimal.Decimal
	MaxLimit  decimal.Decimal
	Merchant  string
	Verified  bool
}

// P2P aggregates currently-listed peer offers into one representative
// BOB/USDT price. Calls are wrapped in a bounded fixed-backoff retry.
type P2P struct {
	opts   P2POptions
	logger zerolog.Logger
	client *http.Client
}

// NewP2P constructs an order book fetcher.
func NewP2P(opts P2POptions, logger zerolog.Logger) *P2P {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"
	}
	if opts.Asset == "" {
		opts.Asset = "USDT"
	}
	if opts.Fiat == "" {
		opts.Fiat = "BOB"
	}
	if opts.TradeType == "" {
		opts.TradeType = "BUY"
	}
	if opts.Rows <= 0 {
		opts.Rows = 10
	}
	if opts.TopOffers <= 0 {
		opts.TopOffers = 10
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Minute
	}

	return &P2P{
		opts:   opts,
		logger: logger.With().Str("component", "p2p_fetcher").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// FetchUSDTBOB retrieves the order book and collapses it into the mean of
// the top offers. Exhausting all attempts surfaces ErrSourceUnavailable.
func (p *P2P) FetchUSDTBOB(ctx context.Context) (decimal.Decimal, error) {
	var price decimal.Decimal

	err := withRetry(ctx, p.logger, p.opts.MaxAttempts, p.opts.RetryBackoff, p.opts.Sleep, func(ctx context.Context) error {
		offers, err := p.fetchOffers(ctx)
		if err != nil {
			return err
		}

		aggregated, err := AggregateOffers(offers, p.opts.TopOffers, p.opts.TradeType)
		if err != nil {
			return err
		}

		price = aggregated
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	p.logger.Debug().Str("price", price.String()).Msg("p2p price aggregated")
	return price, nil
}

func (p *P2P) fetchOffers(ctx context.Context) ([]Offer, error) {
	payload := searchRequest{
		Asset:         p.opts.Asset,
		Fiat:          p.opts.Fiat,
		PublisherType: "merchant",
		MerchantCheck: p.opts.OnlyVerified,
		Page:          1,
		Rows:          p.opts.Rows,
		TradeType:     p.opts.TradeType,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrSourceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	if ua := strings.TrimSpace(p.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: p2p api status %d: %s", ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}

	offers := make([]Offer, 0, len(parsed.Data))
	for _, adv := range parsed.Data {
		price, err := decimal.NewFromString(adv.Adv.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: parse offer price %q: %v", ErrSourceUnavailable, adv.Adv.Price, err)
		}

		offer := Offer{
			Price:    price,
			Merchant: adv.Advertiser.NickName,
			Verified: adv.Advertiser.UserIdentity == "merchant",
		}
		if adv.Adv.SurplusAmount != "" {
			offer.Available, _ = decimal.NewFromString(adv.Adv.SurplusAmount)
		}
		if adv.Adv.MinSingleTransAmount != "" {
			offer.MinLimit, _ = decimal.NewFromString(adv.Adv.MinSingleTransAmount)
		}
		if adv.Adv.MaxSingleTransAmount != "" {
			offer.MaxLimit, _ = decimal.NewFromString(adv.Adv.MaxSingleTransAmount)
		}
		offers = append(offers, offer)
	}

	return offers, nil
}

// AggregateOffers collapses the listing into the mean of the top-N offer
// prices, rounded to 2 decimals. BUY side sorts ascending (cheapest sellers
// first), SELL side descending. Ties break on merchant name so identical
// input always yields identical output.
func AggregateOffers(offers []Offer, topN int, tradeType string) (decimal.Decimal, error) {
	if len(offers) == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: empty order book", ErrSourceUnavailable)
	}

	sorted := make([]Offer, len(offers))
	copy(sorted, offers)
	ascending := !strings.EqualFold(tradeType, "SELL")
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Price.Equal(sorted[j].Price) {
			if ascending {
				return sorted[i].Price.LessThan(sorted[j].Price)
			}
			return sorted[i].Price.GreaterThan(sorted[j].Price)
		}
		return sorted[i].Merchant < sorted[j].Merchant
	})

	if topN <= 0 || topN > len(sorted) {
		topN = len(sorted)
	}

	sum := decimal.Zero
	for _, offer := range sorted[:topN] {
		sum = sum.Add(offer.Price)
	}

	return sum.Div(decimal.NewFromInt(int64(topN))).Round(2), nil
}

type searchRequest struct {
	Asset         string `json:"asset"`
	Fiat          string `json:"fiat"`
	PublisherType string `json:"publisherType"`
	MerchantCheck bool   `json:"merchantCheck"`
	Page          int    `json:"page"`
	Rows          int    `json:"rows"`
	TradeType     string `json:"tradeType"`
}

type searchResponse struct {
	Data []struct {
		Adv struct {
			Price                string `json:"price"`
			SurplusAmount        string `json:"surplusAmount"`
			MinSingleTransAmount string `json:"minSingleTransAmount"`
			MaxSingleTransAmount string `json:"maxSingleTransAmount"`
		} `json:"adv"`
		Advertiser struct {
			NickName     string `json:"nickName"`
			UserIdentity string `json:"userIdentity"`
		} `json:"advertiser"`
	} `json:"data"`
}

var _ P2PRateFetcher = (*P2P)(nil)
