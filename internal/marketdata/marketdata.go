// Package marketdata fetches NIFTY spot prices and previous-day levels from
// multiple sources with fallback.
package marketdata

import (
	"context"
	"errors"

	"DayHighDayLow/internal/model"
)

// ErrDataUnavailable wraps every fetch failure so callers can classify it:
// fatal at day-init, tick-skip everywhere else.
var ErrDataUnavailable = errors.New("market data unavailable")

// Source defines the interface for fetching market data.
type Source interface {
	PreviousDayHighLow(ctx context.Context) (model.Levels, error)
	CurrentPrice(ctx context.Context) (float64, error)
	Name() string
}

// MockSource returns controllable fixed data for development and testing.
type MockSource struct {
	Levels model.Levels
	Price  float64
	Err    error
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) PreviousDayHighLow(_ context.Context) (model.Levels, error) {
	if m.Err != nil {
		return model.Levels{}, m.Err
	}
	return m.Levels, nil
}

func (m *MockSource) CurrentPrice(_ context.Context) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Price, nil
}
