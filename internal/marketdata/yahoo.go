package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"DayHighDayLow/internal/model"
)

// YahooSource fetches NIFTY data from the Yahoo Finance chart API.
type YahooSource struct {
	Symbol string
	Client *http.Client
}

// NewYahooSource creates a Yahoo source with optional proxy support.
// The default symbol is ^NSEI (NIFTY 50).
func NewYahooSource(symbol, proxyURL string) *YahooSource {
	if symbol == "" {
		symbol = "^NSEI"
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooSource{
		Symbol: symbol,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (y *YahooSource) fetchChart(ctx context.Context, interval, rng string) ([]model.OHLCV, float64, error) {
	u := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=%s&range=%s",
		url.PathEscape(y.Symbol), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, 0, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, 0, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, 0, fmt.Errorf("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			break
		}
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		var vol float64
		if i < len(quote.Volume) {
			vol = toFloat(quote.Volume[i])
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: vol,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, result.Meta.RegularMarketPrice, nil
}

// PreviousDayHighLow returns the high/low of the last fully completed
// session. When the latest bar is from today (market open), the bar before
// it is used.
func (y *YahooSource) PreviousDayHighLow(ctx context.Context) (model.Levels, error) {
	bars, _, err := y.fetchChart(ctx, "1d", "5d")
	if err != nil {
		return model.Levels{}, err
	}
	if len(bars) == 0 {
		return model.Levels{}, fmt.Errorf("yahoo: no daily bars")
	}
	last := bars[len(bars)-1]
	today := time.Now().In(last.Time.Location())
	if sameDay(last.Time, today) {
		if len(bars) < 2 {
			return model.Levels{}, fmt.Errorf("yahoo: no completed previous session")
		}
		last = bars[len(bars)-2]
	}
	lv := model.Levels{High: last.High, Low: last.Low}
	if !lv.Valid() {
		return model.Levels{}, fmt.Errorf("yahoo: invalid levels high=%.2f low=%.2f", lv.High, lv.Low)
	}
	return lv, nil
}

// CurrentPrice returns the live NIFTY spot, preferring the chart meta quote
// over the last intraday close.
func (y *YahooSource) CurrentPrice(ctx context.Context) (float64, error) {
	bars, metaPrice, err := y.fetchChart(ctx, "1m", "1d")
	if err != nil {
		// 1m data can be restricted; fall back to the daily chart meta.
		bars, metaPrice, err = y.fetchChart(ctx, "1d", "1d")
		if err != nil {
			return 0, err
		}
	}
	if metaPrice > 0 {
		return metaPrice, nil
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("yahoo: no price data")
	}
	return bars[len(bars)-1].Close, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
