package session

import (
	"testing"
	"time"
)

var ist = time.FixedZone("IST", 5*3600+30*60)

func TestIsOpenBoundaries(t *testing.T) {
	g, err := NewGate("09:15", "15:30", ist)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	cases := []struct {
		hour, min int
		want      bool
	}{
		{9, 14, false},
		{9, 15, true},
		{12, 0, true},
		{15, 30, true},
		{15, 31, false},
		{3, 0, false},
	}
	for _, c := range cases {
		now := time.Date(2026, 8, 24, c.hour, c.min, 0, 0, ist) // a Monday
		if got := g.IsOpen(now); got != c.want {
			t.Errorf("IsOpen(%02d:%02d) = %v, want %v", c.hour, c.min, got, c.want)
		}
	}
}

func TestIsOpenConvertsTimezone(t *testing.T) {
	g, err := NewGate("09:15", "15:30", ist)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	// 06:00 UTC is 11:30 IST, inside the window.
	if !g.IsOpen(time.Date(2026, 8, 24, 6, 0, 0, 0, time.UTC)) {
		t.Error("expected 06:00 UTC to be inside the IST session")
	}
}

func TestNewGateRejectsBadInput(t *testing.T) {
	if _, err := NewGate("9am", "15:30", ist); err == nil {
		t.Error("expected error for unparseable start")
	}
	if _, err := NewGate("25:00", "15:30", ist); err == nil {
		t.Error("expected error for out-of-range hour")
	}
	if _, err := NewGate("15:30", "09:15", ist); err == nil {
		t.Error("expected error for start after end")
	}
}

func TestNextOpenSkipsWeekend(t *testing.T) {
	g, err := NewGate("09:15", "15:30", ist)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	friday := time.Date(2026, 8, 28, 16, 0, 0, 0, ist)
	next := g.NextOpen(friday)
	if next.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", next.Weekday())
	}
	if next.Hour() != 9 || next.Minute() != 15 {
		t.Errorf("expected 09:15 open, got %02d:%02d", next.Hour(), next.Minute())
	}
}
