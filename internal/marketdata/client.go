// Package marketdata fetches live quotes from the external market-data vendor.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tikalinvest/brokerage-ledger/internal/config"
	"github.com/tikalinvest/brokerage-ledger/internal/logging"
	"github.com/tikalinvest/brokerage-ledger/internal/model"
)

// SourceVendor is recorded as the Source of quotes fetched by Client.
const SourceVendor = "vendor"

// ErrNoPrice is returned when the vendor answers but has no usable price for a symbol.
var ErrNoPrice = errors.New("no price returned")

// Client queries the vendor's chart endpoint for the latest traded price.
type Client struct {
	client *resty.Client
}

// New creates a vendor client with the configured base URL and request timeout.
func New(cfg config.MarketDataConfig) *Client {
	client := resty.New().
		SetDebug(cfg.Debug).
		SetTimeout(cfg.Timeout).
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetHeader("Accept", "application/json")
	return &Client{client: client}
}

// Quote fetches the latest price for symbol.
//
// The regular market price from the chart metadata is preferred; when it is missing
// the last non-null daily close is used instead.
func (c *Client) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	log := logging.FromContext(ctx)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	log.Debug("start marketdata quote request", "symbol", symbol)

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"range":    "5d",
		}).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		log.Warn("error while dialing marketdata vendor", "symbol", symbol, "error", err)
		return model.Quote{}, fmt.Errorf("failed to query vendor for %s: %w", symbol, err)
	}

	var chart ChartResponse
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		if resp.IsError() {
			return model.Quote{}, fmt.Errorf("vendor returned status %d for %s", resp.StatusCode(), symbol)
		}
		return model.Quote{}, fmt.Errorf("failed to decode vendor response for %s: %w", symbol, err)
	}

	if chart.Chart.Error != nil {
		if resp.StatusCode() == http.StatusNotFound {
			return model.Quote{}, fmt.Errorf("%w: %s: %s", ErrNoPrice, symbol, chart.Chart.Error.Description)
		}
		return model.Quote{}, fmt.Errorf("vendor error for %s: %s", symbol, chart.Chart.Error.Description)
	}
	if resp.IsError() {
		return model.Quote{}, fmt.Errorf("vendor returned status %d for %s", resp.StatusCode(), symbol)
	}
	if len(chart.Chart.Result) == 0 {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}

	q, err := ParseQuote(chart.Chart.Result[0])
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: %s", err, symbol)
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}

	log.Debug("marketdata quote request complete", "symbol", symbol, "price", q.Price.String())
	return q, nil
}

// ParseQuote extracts a quote from one chart result.
func ParseQuote(result ChartResult) (model.Quote, error) {
	name := result.Meta.LongName
	if name == "" {
		name = result.Meta.ShortName
	}
	q := model.Quote{
		Symbol: strings.ToUpper(result.Meta.Symbol),
		Name:   name,
		Source: SourceVendor,
	}

	if p := result.Meta.RegularMarketPrice; p != nil && p.IsPositive() {
		q.Price = *p
		q.AsOf = unixOrNow(result.Meta.RegularMarketTime)
		return q, nil
	}

	if len(result.Indicators.Quote) == 0 {
		return model.Quote{}, ErrNoPrice
	}
	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return model.Quote{}, fmt.Errorf("mismatched data lengths")
	}
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil && closes[i].IsPositive() {
			q.Price = *closes[i]
			q.AsOf = unixOrNow(result.Timestamp[i])
			return q, nil
		}
	}
	return model.Quote{}, ErrNoPrice
}

func unixOrNow(sec int64) time.Time {
	if sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
