// Package broker abstracts order execution and option pricing. Two backends
// exist: the Zerodha Kite REST/WebSocket client for live trading and an
// in-memory paper broker for dry runs.
package broker

import (
	"context"
	"errors"
	"time"

	"DayHighDayLow/internal/model"
)

var (
	// ErrInstrumentNotFound means no tradable contract exists near the
	// requested strike.
	ErrInstrumentNotFound = errors.New("instrument not found")
	// ErrOrderRejected means the broker refused the order. Execution of
	// this signal is abandoned; the tick continues.
	ErrOrderRejected = errors.New("order rejected")
)

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Instrument is a resolved, tradable option contract.
type Instrument struct {
	Token         uint32
	TradingSymbol string
	Exchange      string
	OptionType    model.OptionType
	Strike        int
	Expiry        time.Time
}

// Broker is the minimal execution surface the strategy needs.
type Broker interface {
	Name() string
	// ResolveInstrument finds a tradable contract at or near the strike.
	ResolveInstrument(ctx context.Context, ot model.OptionType, strike int, expiry time.Time) (Instrument, error)
	// LastPrice returns the option's last traded price.
	LastPrice(ctx context.Context, inst Instrument) (float64, error)
	// PlaceOrder places a market order and returns the broker order id.
	PlaceOrder(ctx context.Context, inst Instrument, side Side, quantity int) (string, error)
}

// ATMStrike rounds the spot to the nearest NIFTY strike (50-point grid).
func ATMStrike(spot float64) int {
	const step = 50
	return int((spot+step/2)/step) * step
}

// NextExpiry returns the upcoming weekly expiry (Thursday). A Thursday
// during trading hours still expires the same day is avoided: on Thursday
// the following week's contract is used, matching the original rollover.
func NextExpiry(now time.Time) time.Time {
	daysAhead := (int(time.Thursday) - int(now.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	d := now.AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}

// nearbyStrikes is the probe order used when the exact ATM strike has no
// listed contract.
func nearbyStrikes(strike int) []int {
	return []int{strike, strike - 50, strike + 50, strike - 100, strike + 100}
}
