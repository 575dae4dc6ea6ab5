// Package cooldown tracks per-signal-kind suppression windows.
package cooldown

import (
	"time"

	"github.com/rs/zerolog"
)

// Kind is the cooldown bucket a signal arms. Gap up/down, breakout high/low
// and reentry each suppress independently.
type Kind string

const (
	GapUp        Kind = "gap_up"
	GapDown      Kind = "gap_down"
	BreakoutHigh Kind = "breakout_high"
	BreakoutLow  Kind = "breakout_low"
	Reentry      Kind = "reentry"
)

// Windows configures the suppression window per kind.
type Windows map[Kind]time.Duration

// DefaultWindows mirrors the strategy defaults: 15 min for gaps, 10 min for
// breakouts, 5 min for reentries.
func DefaultWindows() Windows {
	return Windows{
		GapUp:        15 * time.Minute,
		GapDown:      15 * time.Minute,
		BreakoutHigh: 10 * time.Minute,
		BreakoutLow:  10 * time.Minute,
		Reentry:      5 * time.Minute,
	}
}

type entry struct {
	armedAt time.Time
	price   float64
}

// Registry holds armed cooldown entries grouped by kind. Expired entries are
// pruned lazily on each check, never proactively. Not safe for concurrent
// use; ticks are single-threaded.
type Registry struct {
	windows Windows
	entries map[Kind][]entry
	log     zerolog.Logger
}

// NewRegistry creates a registry with the given windows. Kinds missing from
// the map fall back to 5 minutes.
func NewRegistry(windows Windows, log zerolog.Logger) *Registry {
	if windows == nil {
		windows = DefaultWindows()
	}
	return &Registry{
		windows: windows,
		entries: make(map[Kind][]entry),
		log:     log,
	}
}

func (r *Registry) window(kind Kind) time.Duration {
	if w, ok := r.windows[kind]; ok {
		return w
	}
	return 5 * time.Minute
}

// IsActive prunes expired entries for kind and reports whether any remain.
func (r *Registry) IsActive(kind Kind, now time.Time) bool {
	w := r.window(kind)
	live := r.entries[kind][:0]
	for _, e := range r.entries[kind] {
		if now.Sub(e.armedAt) < w {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		delete(r.entries, kind)
		return false
	}
	r.entries[kind] = live
	remaining := w - now.Sub(live[0].armedAt)
	r.log.Debug().Str("kind", string(kind)).Dur("remaining", remaining).Msg("signal in cooldown")
	return true
}

// Arm records a new cooldown entry for kind at the given price.
func (r *Registry) Arm(kind Kind, price float64, now time.Time) {
	r.entries[kind] = append(r.entries[kind], entry{armedAt: now, price: price})
	r.log.Info().Str("kind", string(kind)).Float64("price", price).Msg("cooldown armed")
}

// Active returns the number of kinds currently under suppression.
func (r *Registry) Active(now time.Time) int {
	n := 0
	for kind := range r.entries {
		if r.IsActive(kind, now) {
			n++
		}
	}
	return n
}

// Reset drops all entries. Called at day-init.
func (r *Registry) Reset() {
	r.entries = make(map[Kind][]entry)
}
