package supermaya

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// PricePoint is one daily closing price.
type PricePoint struct {
	Time  time.Time
	Close float64
}

// MarketDataClient fetches recent price history for a ticker symbol.
// Implementations return ErrNoData when the symbol is unknown or has no
// recent rows.
type MarketDataClient interface {
	History(ctx context.Context, symbol, period string) ([]PricePoint, error)
}

// HTTPDoer is the subset of http.Client used by the Yahoo client. It enables
// dependency injection for testing without network calls.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// maxResponseSize limits external API responses to 1MB.
const maxResponseSize = 1 << 20

type yahooClientOptions struct {
	Logger      *slog.Logger
	HTTPTimeout time.Duration
	HTTPClient  HTTPDoer
	BaseURL     string
}

// yahooClient fetches daily history from the Yahoo Finance chart API.
type yahooClient struct {
	logger  *slog.Logger
	client  HTTPDoer
	baseURL string
}

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

func newYahooClient(opts yahooClientOptions) *yahooClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.HTTPTimeout}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &yahooClient{logger: logger, client: client, baseURL: baseURL}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History returns daily closing prices for symbol over the given range
// (e.g. "1mo"), oldest first. Rows with a missing close are skipped.
func (y *yahooClient) History(ctx context.Context, symbol, period string) ([]PricePoint, error) {
	if period == "" {
		period = "1mo"
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.baseURL, url.PathEscape(symbol), url.QueryEscape(period))

	y.logger.Info("fetching price history", "symbol", symbol, "range", period)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, WrapError(ErrCodeProvider, "build market data request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, WrapError(ErrCodeProvider, "market data request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, WrapError(ErrCodeProvider, "read market data response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNoData
		}
		return nil, WrapError(ErrCodeProvider, fmt.Sprintf("market data http status %d", resp.StatusCode), nil)
	}

	return parseYahooChart(body)
}

func parseYahooChart(body []byte) ([]PricePoint, error) {
	var payload yahooChartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, WrapError(ErrCodeProvider, "decode market data response", err)
	}
	if payload.Chart.Error != nil {
		return nil, ErrNoData
	}
	if len(payload.Chart.Result) == 0 {
		return nil, ErrNoData
	}
	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	closes := result.Indicators.Quote[0].Close

	points := make([]PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}
	if len(points) == 0 {
		return nil, ErrNoData
	}
	return points, nil
}
