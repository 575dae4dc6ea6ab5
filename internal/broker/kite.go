package broker

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"DayHighDayLow/internal/model"
)

// KiteBroker talks to the Zerodha Kite Connect v3 REST API. An optional
// Ticker supplies streaming last prices; REST /quote/ltp is the fallback.
type KiteBroker struct {
	apiKey      string
	accessToken string
	baseURL     string
	client      *http.Client
	ticker      *Ticker
	log         zerolog.Logger

	mu          sync.Mutex
	instruments []Instrument // NFO NIFTY option dump, cached for the day
	loadedAt    time.Time
}

// NewKiteBroker creates a Kite client. The access token must already be
// generated (Kite tokens expire daily and are produced by the login flow
// outside this process).
func NewKiteBroker(apiKey, accessToken string, ticker *Ticker, log zerolog.Logger) *KiteBroker {
	return &KiteBroker{
		apiKey:      apiKey,
		accessToken: accessToken,
		baseURL:     "https://api.kite.trade",
		client:      &http.Client{Timeout: 15 * time.Second},
		ticker:      ticker,
		log:         log,
	}
}

func (k *KiteBroker) Name() string { return "kite" }

func (k *KiteBroker) do(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, k.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Kite-Version", "3")
	req.Header.Set("Authorization", "token "+k.apiKey+":"+k.accessToken)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kite %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kite %s read body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kite %s: status %d, body: %s", path, resp.StatusCode, string(data))
	}
	return data, nil
}

// loadInstruments downloads and caches the NFO instrument dump (CSV) for the
// day, keeping only NIFTY option contracts.
func (k *KiteBroker) loadInstruments(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.instruments != nil && time.Since(k.loadedAt) < 12*time.Hour {
		return nil
	}

	data, err := k.do(ctx, http.MethodGet, "/instruments/NFO", nil)
	if err != nil {
		return err
	}

	r := csv.NewReader(strings.NewReader(string(data)))
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("kite instruments header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	var out []Instrument
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("kite instruments row: %w", err)
		}
		if rec[col["name"]] != "NIFTY" {
			continue
		}
		instType := rec[col["instrument_type"]]
		if instType != "CE" && instType != "PE" {
			continue
		}
		token, _ := strconv.ParseUint(rec[col["instrument_token"]], 10, 32)
		strike, _ := strconv.ParseFloat(rec[col["strike"]], 64)
		expiry, _ := time.Parse("2006-01-02", rec[col["expiry"]])
		out = append(out, Instrument{
			Token:         uint32(token),
			TradingSymbol: rec[col["tradingsymbol"]],
			Exchange:      "NFO",
			OptionType:    model.OptionType(instType),
			Strike:        int(strike),
			Expiry:        expiry,
		})
	}

	k.instruments = out
	k.loadedAt = time.Now()
	k.log.Info().Int("count", len(out)).Msg("kite instruments loaded")
	return nil
}

// ResolveInstrument tries the exact ATM strike first, then nearby strikes.
func (k *KiteBroker) ResolveInstrument(ctx context.Context, ot model.OptionType, strike int, expiry time.Time) (Instrument, error) {
	if err := k.loadInstruments(ctx); err != nil {
		return Instrument{}, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, try := range nearbyStrikes(strike) {
		for _, inst := range k.instruments {
			if inst.OptionType == ot && inst.Strike == try && sameDate(inst.Expiry, expiry) {
				return inst, nil
			}
		}
	}
	return Instrument{}, fmt.Errorf("%w: %s near strike %d expiry %s",
		ErrInstrumentNotFound, ot, strike, expiry.Format("2006-01-02"))
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// LastPrice prefers the ticker's streaming quote and falls back to the REST
// LTP endpoint.
func (k *KiteBroker) LastPrice(ctx context.Context, inst Instrument) (float64, error) {
	if k.ticker != nil {
		if ltp, ok := k.ticker.LastPrice(inst.Token); ok {
			return ltp, nil
		}
		k.ticker.Subscribe(inst.Token)
	}

	key := inst.Exchange + ":" + inst.TradingSymbol
	data, err := k.do(ctx, http.MethodGet, "/quote/ltp?i="+url.QueryEscape(key), nil)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Data map[string]struct {
			LastPrice float64 `json:"last_price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("kite ltp decode: %w", err)
	}
	q, ok := resp.Data[key]
	if !ok || q.LastPrice <= 0 {
		return 0, fmt.Errorf("kite: no ltp for %s", key)
	}
	return q.LastPrice, nil
}

// PlaceOrder submits a regular MIS market order.
func (k *KiteBroker) PlaceOrder(ctx context.Context, inst Instrument, side Side, quantity int) (string, error) {
	form := url.Values{
		"exchange":         {inst.Exchange},
		"tradingsymbol":    {inst.TradingSymbol},
		"transaction_type": {string(side)},
		"order_type":       {"MARKET"},
		"quantity":         {strconv.Itoa(quantity)},
		"product":          {"MIS"},
		"validity":         {"DAY"},
	}
	data, err := k.do(ctx, http.MethodPost, "/orders/regular", form)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOrderRejected, err)
	}
	var resp struct {
		Data struct {
			OrderID string `json:"order_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("kite order decode: %w", err)
	}
	if resp.Data.OrderID == "" {
		return "", fmt.Errorf("%w: empty order id", ErrOrderRejected)
	}
	k.log.Info().
		Str("symbol", inst.TradingSymbol).
		Str("side", string(side)).
		Int("quantity", quantity).
		Str("order_id", resp.Data.OrderID).
		Msg("kite order placed")
	return resp.Data.OrderID, nil
}
