// Package flow ranks watchlist symbols by directional flow score.
package flow

import (
	"math"

	"topflow/internal/quote"
)

// DefaultWatchlist is the fixed set of symbols sampled every cycle, in visiting order.
var DefaultWatchlist = []string{"AAPL", "MSFT", "NVDA", "META", "AMZN", "AMD", "GOOGL", "TSLA"}

// Watchlist returns a copy of DefaultWatchlist.
func Watchlist() []string {
	return append([]string(nil), DefaultWatchlist...)
}

// Snapshot is one symbol's derived metrics for a cycle.
type Snapshot struct {
	Ticker         string
	Price          float64
	PercentChange  float64
	Volume         float64
	RelativeVolume float64
	FlowScore      float64
}

// NewSnapshot derives a Snapshot from a usable sample.
func NewSnapshot(ticker string, s quote.Sample) Snapshot {
	return Snapshot{
		Ticker:         ticker,
		Price:          s.Price(),
		PercentChange:  s.PercentChange,
		Volume:         s.Volume,
		RelativeVolume: s.RelativeVolume(),
		FlowScore:      s.FlowScore(),
	}
}

// Direction labels the sign of the winning flow score.
type Direction int

const (
	Bullish Direction = iota
	Bearish
)

// DirectionOf maps a flow score to its direction; zero counts as bullish.
func DirectionOf(score float64) Direction {
	if score >= 0 {
		return Bullish
	}
	return Bearish
}

func (d Direction) String() string {
	if d == Bearish {
		return "bearish"
	}
	return "bullish"
}

// Label is the alert headline for the direction.
func (d Direction) Label() string {
	if d == Bearish {
		return "TOP BEAR FLOW"
	}
	return "TOP BULL FLOW"
}

// Result is the cycle winner.
type Result struct {
	Snapshot
	Direction Direction
}

// Tracker keeps the running extremum of a cycle.
//
// A snapshot replaces the current best only when its absolute flow score is
// strictly greater, so on equal magnitudes the first symbol observed wins.
type Tracker struct {
	best  Snapshot
	found bool
}

// Observe offers a snapshot and reports whether it became the new best.
func (t *Tracker) Observe(s Snapshot) bool {
	if t.found && !(math.Abs(s.FlowScore) > math.Abs(t.best.FlowScore)) {
		return false
	}
	t.best = s
	t.found = true
	return true
}

// Best returns the winner, if any snapshot was observed.
func (t *Tracker) Best() (Result, bool) {
	if !t.found {
		return Result{}, false
	}
	return Result{Snapshot: t.best, Direction: DirectionOf(t.best.FlowScore)}, true
}

// Select runs a Tracker over snapshots in order.
func Select(snapshots []Snapshot) (Result, bool) {
	var t Tracker
	for _, s := range snapshots {
		t.Observe(s)
	}
	return t.Best()
}
