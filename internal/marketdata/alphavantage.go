package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"DayHighDayLow/internal/model"
)

// AlphaVantageSource fetches NIFTY data from the Alpha Vantage REST API.
// Several symbol spellings are tried in order; Alpha Vantage's NSE coverage
// is inconsistent.
type AlphaVantageSource struct {
	APIKey  string
	BaseURL string
	Symbols []string
	Client  *http.Client
}

// NewAlphaVantageSource creates an Alpha Vantage source.
func NewAlphaVantageSource(apiKey, proxyURL string) *AlphaVantageSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &AlphaVantageSource{
		APIKey:  apiKey,
		BaseURL: "https://www.alphavantage.co/query",
		Symbols: []string{"NSEI.BSE", "^NSEI", "NSEI"},
		Client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
	}
}

func (a *AlphaVantageSource) Name() string { return "alphavantage" }

type avDailyResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	TimeSeries   map[string]map[string]string `json:"Time Series (Daily)"`
	GlobalQuote  map[string]string            `json:"Global Quote"`
}

func (a *AlphaVantageSource) query(ctx context.Context, function, symbol string) (*avDailyResponse, error) {
	u := fmt.Sprintf("%s?function=%s&symbol=%s&apikey=%s&outputsize=compact",
		a.BaseURL, function, url.QueryEscape(symbol), a.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %d", resp.StatusCode)
	}

	var out avDailyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}
	if out.ErrorMessage != "" {
		return nil, fmt.Errorf("alphavantage api error: %s", out.ErrorMessage)
	}
	if out.Note != "" {
		return nil, fmt.Errorf("alphavantage rate limited: %s", out.Note)
	}
	return &out, nil
}

func avFloat(m map[string]string, key string) float64 {
	f, _ := strconv.ParseFloat(m[key], 64)
	return f
}

// PreviousDayHighLow walks the daily time series for the most recent
// completed session.
func (a *AlphaVantageSource) PreviousDayHighLow(ctx context.Context) (model.Levels, error) {
	var lastErr error
	for _, symbol := range a.Symbols {
		resp, err := a.query(ctx, "TIME_SERIES_DAILY", symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.TimeSeries) == 0 {
			lastErr = fmt.Errorf("alphavantage: no daily series for %s", symbol)
			continue
		}

		dates := make([]string, 0, len(resp.TimeSeries))
		for d := range resp.TimeSeries {
			dates = append(dates, d)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))

		today := time.Now().Format("2006-01-02")
		for _, d := range dates {
			if d == today {
				continue // session still in progress
			}
			bar := resp.TimeSeries[d]
			lv := model.Levels{High: avFloat(bar, "2. high"), Low: avFloat(bar, "3. low")}
			if lv.Valid() {
				return lv, nil
			}
		}
		lastErr = fmt.Errorf("alphavantage: no completed session for %s", symbol)
	}
	return model.Levels{}, lastErr
}

// CurrentPrice uses the GLOBAL_QUOTE endpoint.
func (a *AlphaVantageSource) CurrentPrice(ctx context.Context) (float64, error) {
	var lastErr error
	for _, symbol := range a.Symbols {
		resp, err := a.query(ctx, "GLOBAL_QUOTE", symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if price := avFloat(resp.GlobalQuote, "05. price"); price > 0 {
			return price, nil
		}
		lastErr = fmt.Errorf("alphavantage: empty quote for %s", symbol)
	}
	return 0, lastErr
}
