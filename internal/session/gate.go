// Package session decides whether the trading window is open.
package session

import (
	"fmt"
	"time"
)

// Gate is a stateless predicate over the configured trading hours.
type Gate struct {
	startHour, startMin int
	endHour, endMin     int
	loc                 *time.Location
}

// NewGate parses "HH:MM" start/end times in the given location.
// IST (Asia/Kolkata) is the natural choice for NSE hours.
func NewGate(start, end string, loc *time.Location) (*Gate, error) {
	g := &Gate{loc: loc}
	if g.loc == nil {
		g.loc = time.Local
	}
	var err error
	if g.startHour, g.startMin, err = parseHHMM(start); err != nil {
		return nil, fmt.Errorf("session start: %w", err)
	}
	if g.endHour, g.endMin, err = parseHHMM(end); err != nil {
		return nil, fmt.Errorf("session end: %w", err)
	}
	startMins := g.startHour*60 + g.startMin
	endMins := g.endHour*60 + g.endMin
	if startMins >= endMins {
		return nil, fmt.Errorf("session start %s not before end %s", start, end)
	}
	return g, nil
}

func parseHHMM(s string) (hour, min int, err error) {
	if _, err = fmt.Sscanf(s, "%d:%d", &hour, &min); err != nil {
		return 0, 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("time %q out of range", s)
	}
	return hour, min, nil
}

// IsOpen reports whether now falls inside the trading window, inclusive on
// both ends.
func (g *Gate) IsOpen(now time.Time) bool {
	t := now.In(g.loc)
	mins := t.Hour()*60 + t.Minute()
	return mins >= g.startHour*60+g.startMin && mins <= g.endHour*60+g.endMin
}

// NextOpen returns the next session start at or after now. Weekends are
// skipped; exchange holidays are not tracked (day-init simply finds no fresh
// data on a holiday).
func (g *Gate) NextOpen(now time.Time) time.Time {
	t := now.In(g.loc)
	open := time.Date(t.Year(), t.Month(), t.Day(), g.startHour, g.startMin, 0, 0, g.loc)
	for !open.After(t) || open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
	}
	return open
}
