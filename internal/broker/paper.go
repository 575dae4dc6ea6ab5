package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"DayHighDayLow/internal/model"
)

// basePremium is the simulated fill price for a fresh paper position.
const basePremium = 100.0

// paperFill remembers the state at entry so later quotes can be derived
// from the spot move.
type paperFill struct {
	entryPrice  float64
	spotAtEntry float64
}

// PaperBroker simulates execution without touching an exchange. Option
// quotes are derived from the NIFTY move since entry: options are assumed to
// move roughly 3x the underlying, floored at 0.5.
type PaperBroker struct {
	mu    sync.Mutex
	spot  float64
	fills map[string]paperFill // keyed by trading symbol
	log   zerolog.Logger
}

// NewPaperBroker creates an empty paper broker.
func NewPaperBroker(log zerolog.Logger) *PaperBroker {
	return &PaperBroker{fills: make(map[string]paperFill), log: log}
}

func (p *PaperBroker) Name() string { return "paper" }

// SetSpot feeds the latest NIFTY price into the simulation. The orchestrator
// calls this once per tick.
func (p *PaperBroker) SetSpot(price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spot = price
}

// ResolveInstrument synthesizes a contract; every 50-point strike exists in
// paper mode.
func (p *PaperBroker) ResolveInstrument(_ context.Context, ot model.OptionType, strike int, expiry time.Time) (Instrument, error) {
	return Instrument{
		TradingSymbol: fmt.Sprintf("NIFTY%s%d%s", expiry.Format("060102"), strike, ot),
		Exchange:      "NFO",
		OptionType:    ot,
		Strike:        strike,
		Expiry:        expiry,
	}, nil
}

// LastPrice quotes the simulated premium: the base premium before entry, and
// afterwards the entry premium scaled by 3x the relative spot move.
func (p *PaperBroker) LastPrice(_ context.Context, inst Instrument) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fill, ok := p.fills[inst.TradingSymbol]
	if !ok {
		return basePremium, nil
	}
	if fill.spotAtEntry <= 0 || p.spot <= 0 {
		return fill.entryPrice, nil
	}
	move := (p.spot - fill.spotAtEntry) / fill.spotAtEntry
	if inst.OptionType == model.OptionPE {
		move = -move
	}
	price := fill.entryPrice * (1 + move*3)
	if price < 0.5 {
		price = 0.5
	}
	return price, nil
}

// PlaceOrder simulates an immediate fill at the current quote.
func (p *PaperBroker) PlaceOrder(ctx context.Context, inst Instrument, side Side, quantity int) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("%w: quantity %d", ErrOrderRejected, quantity)
	}
	price, _ := p.LastPrice(ctx, inst)

	p.mu.Lock()
	if side == SideBuy {
		p.fills[inst.TradingSymbol] = paperFill{entryPrice: price, spotAtEntry: p.spot}
	} else {
		delete(p.fills, inst.TradingSymbol)
	}
	p.mu.Unlock()

	orderID := "PAPER_" + uuid.New().String()
	p.log.Info().
		Str("symbol", inst.TradingSymbol).
		Str("side", string(side)).
		Int("quantity", quantity).
		Float64("price", price).
		Msg("paper order filled")
	return orderID, nil
}
