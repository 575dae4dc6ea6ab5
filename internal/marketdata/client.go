package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"DayHighDayLow/internal/model"
)

// Client is the multi-source market data collaborator. Sources are tried in
// order until one answers; current prices are cached briefly and requests
// are spaced by a minimum interval to respect free-tier quotas.
type Client struct {
	sources []Source
	log     zerolog.Logger

	cacheTTL    time.Duration
	minInterval time.Duration

	cachedPrice   float64
	cachedAt      time.Time
	lastRequestAt time.Time
}

// NewClient builds a client over the given sources, first source preferred.
func NewClient(log zerolog.Logger, sources ...Source) *Client {
	return &Client{
		sources:     sources,
		log:         log,
		cacheTTL:    30 * time.Second,
		minInterval: 5 * time.Second,
	}
}

func (c *Client) Name() string { return "fallback" }

// PreviousDayHighLow tries each source in order. All failures collapse into
// ErrDataUnavailable, which is fatal at day-init.
func (c *Client) PreviousDayHighLow(ctx context.Context) (model.Levels, error) {
	var lastErr error
	for _, src := range c.sources {
		lv, err := src.PreviousDayHighLow(ctx)
		if err != nil {
			c.log.Warn().Str("source", src.Name()).Err(err).Msg("previous day levels fetch failed")
			lastErr = err
			continue
		}
		c.log.Info().
			Str("source", src.Name()).
			Float64("high", lv.High).
			Float64("low", lv.Low).
			Msg("previous day levels fetched")
		return lv, nil
	}
	return model.Levels{}, fmt.Errorf("%w: previous day levels: %v", ErrDataUnavailable, lastErr)
}

// CurrentPrice returns the cached spot when fresh, otherwise fetches from
// the first answering source.
func (c *Client) CurrentPrice(ctx context.Context) (float64, error) {
	now := time.Now()
	if c.cachedPrice > 0 && now.Sub(c.cachedAt) < c.cacheTTL {
		return c.cachedPrice, nil
	}
	if wait := c.minInterval - now.Sub(c.lastRequestAt); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	c.lastRequestAt = time.Now()

	var lastErr error
	for _, src := range c.sources {
		price, err := src.CurrentPrice(ctx)
		if err != nil {
			c.log.Warn().Str("source", src.Name()).Err(err).Msg("price fetch failed")
			lastErr = err
			continue
		}
		if price <= 0 {
			lastErr = fmt.Errorf("%s returned price %.2f", src.Name(), price)
			continue
		}
		c.cachedPrice = price
		c.cachedAt = time.Now()
		return price, nil
	}
	return 0, fmt.Errorf("%w: current price: %v", ErrDataUnavailable, lastErr)
}
