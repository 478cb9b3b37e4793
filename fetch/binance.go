package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"smartmoney/shared"
)

const (
	// BaseURL is the binance usd-m futures api base url.
	BaseURL = "https://fapi.binance.com"
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// BaseURL is the futures api base url.
	BaseURL string
}

// BinanceClient represents the binance usd-m futures api client.
type BinanceClient struct {
	cfg   *BinanceConfig
	httpc http.Client
}

// NewBinanceClient initializes a new binance client.
func NewBinanceClient(cfg *BinanceConfig) (*BinanceClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("binance base url cannot be an empty string")
	}

	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
	}, nil
}

// get fetches the provided api path with the provided parameters.
func (c *BinanceClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", path, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response body: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d, body %s", path, resp.StatusCode, string(body))
	}

	return body, nil
}

// FetchCandlesticks fetches the most recent klines for the provided market and
// timeframe.
func (c *BinanceClient) FetchCandlesticks(ctx context.Context, market string, timeframe shared.Timeframe, limit int) ([]gjson.Result, error) {
	const klinesPath = "/fapi/v1/klines"

	params := url.Values{}
	params.Add("symbol", market)
	params.Add("interval", timeframe.String())
	params.Add("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, klinesPath, params)
	if err != nil {
		return nil, fmt.Errorf("fetching %s %s klines: %w", market, timeframe.String(), err)
	}

	return gjson.ParseBytes(body).Array(), nil
}

// ParseCandlesticks parses candlesticks from the provided kline data. A kline
// whose close time has not elapsed as of the provided time is still forming
// and is dropped.
func (c *BinanceClient) ParseCandlesticks(data []gjson.Result, market string, timeframe shared.Timeframe, now time.Time) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, 0, len(data))

	for idx := range data {
		fields := data[idx].Array()
		if len(fields) < 7 {
			return nil, fmt.Errorf("malformed %s kline: %d fields", market, len(fields))
		}

		closeTime := time.UnixMilli(fields[6].Int()).UTC()
		if !closeTime.Before(now) {
			continue
		}

		candles = append(candles, shared.Candlestick{
			Open:      fields[1].Float(),
			High:      fields[2].Float(),
			Low:       fields[3].Float(),
			Close:     fields[4].Float(),
			Volume:    fields[5].Float(),
			Date:      time.UnixMilli(fields[0].Int()).UTC(),
			Market:    market,
			Timeframe: timeframe,
		})
	}

	return candles, nil
}

// FetchMarketPrice fetches the current price of the provided market.
func (c *BinanceClient) FetchMarketPrice(ctx context.Context, market string) (float64, error) {
	const tickerPath = "/fapi/v1/ticker/price"

	params := url.Values{}
	params.Add("symbol", market)

	body, err := c.get(ctx, tickerPath, params)
	if err != nil {
		return 0, fmt.Errorf("fetching %s price: %w", market, err)
	}

	price := gjson.GetBytes(body, "price").Float()
	if price <= 0 {
		return 0, fmt.Errorf("invalid price for %s: %s", market, string(body))
	}

	return price, nil
}

// FetchPricePrecision fetches the display precision of the provided market,
// derived from its price filter tick size.
func (c *BinanceClient) FetchPricePrecision(ctx context.Context, market string) (int, error) {
	const exchangeInfoPath = "/fapi/v1/exchangeInfo"

	params := url.Values{}
	params.Add("symbol", market)

	body, err := c.get(ctx, exchangeInfoPath, params)
	if err != nil {
		return 0, fmt.Errorf("fetching %s exchange info: %w", market, err)
	}

	tickSize := gjson.GetBytes(body,
		`symbols.0.filters.#(filterType=="PRICE_FILTER").tickSize`).String()
	if tickSize == "" {
		return 0, fmt.Errorf("no price filter found for %s", market)
	}

	return precisionFromTickSize(tickSize), nil
}

// precisionFromTickSize returns the number of significant decimal places of
// the provided tick size.
func precisionFromTickSize(tickSize string) int {
	idx := strings.Index(tickSize, ".")
	if idx < 0 {
		return 0
	}

	return len(strings.TrimRight(tickSize[idx+1:], "0"))
}
