package broker

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"DayHighDayLow/internal/model"
)

func TestATMStrike(t *testing.T) {
	cases := []struct {
		spot float64
		want int
	}{
		{20123, 20100},
		{20126, 20150},
		{20150, 20150},
		{19874.9, 19850},
		{19875, 19900},
	}
	for _, c := range cases {
		if got := ATMStrike(c.spot); got != c.want {
			t.Errorf("ATMStrike(%.1f) = %d, want %d", c.spot, got, c.want)
		}
	}
}

func TestNextExpiry(t *testing.T) {
	loc := time.UTC
	monday := time.Date(2026, 8, 24, 10, 0, 0, 0, loc)
	require.Equal(t, time.Thursday, NextExpiry(monday).Weekday())
	require.Equal(t, 27, NextExpiry(monday).Day())

	// On expiry day itself the position would die intraday; roll to the
	// following week.
	thursday := time.Date(2026, 8, 27, 10, 0, 0, 0, loc)
	require.Equal(t, 3, NextExpiry(thursday).Day())
	require.Equal(t, time.September, NextExpiry(thursday).Month())

	friday := time.Date(2026, 8, 28, 10, 0, 0, 0, loc)
	require.Equal(t, 3, NextExpiry(friday).Day())
}

func TestPaperBrokerLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(zerolog.Nop())
	expiry := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

	inst, err := p.ResolveInstrument(ctx, model.OptionCE, 20100, expiry)
	require.NoError(t, err)
	require.Equal(t, "NIFTY26090320100CE", inst.TradingSymbol)

	// Before entry the quote is the base premium.
	price, err := p.LastPrice(ctx, inst)
	require.NoError(t, err)
	require.Equal(t, 100.0, price)

	p.SetSpot(20100)
	orderID, err := p.PlaceOrder(ctx, inst, SideBuy, 150)
	require.NoError(t, err)
	require.Contains(t, orderID, "PAPER_")

	// A 1% spot rally moves the option roughly 3%.
	p.SetSpot(20301)
	price, err = p.LastPrice(ctx, inst)
	require.NoError(t, err)
	require.InDelta(t, 103.0, price, 0.01)

	// A crash cannot quote below the floor.
	p.SetSpot(10000)
	price, err = p.LastPrice(ctx, inst)
	require.NoError(t, err)
	require.Equal(t, 0.5, price)

	// Selling clears the fill; the quote resets to the base premium.
	_, err = p.PlaceOrder(ctx, inst, SideSell, 150)
	require.NoError(t, err)
	price, err = p.LastPrice(ctx, inst)
	require.NoError(t, err)
	require.Equal(t, 100.0, price)
}

func TestPaperBrokerPutGainsOnFall(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(zerolog.Nop())
	expiry := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)

	inst, err := p.ResolveInstrument(ctx, model.OptionPE, 19800, expiry)
	require.NoError(t, err)

	p.SetSpot(19800)
	_, err = p.PlaceOrder(ctx, inst, SideBuy, 150)
	require.NoError(t, err)

	p.SetSpot(19602) // down 1%
	price, err := p.LastPrice(ctx, inst)
	require.NoError(t, err)
	require.InDelta(t, 103.0, price, 0.01)
}

func TestPaperBrokerRejectsBadQuantity(t *testing.T) {
	p := NewPaperBroker(zerolog.Nop())
	_, err := p.PlaceOrder(context.Background(), Instrument{}, SideBuy, 0)
	require.ErrorIs(t, err, ErrOrderRejected)
}

func TestNearbyStrikesProbeOrder(t *testing.T) {
	got := nearbyStrikes(20100)
	require.Equal(t, []int{20100, 20050, 20150, 20000, 20200}, got)
}
