// Package strategy implements the signal scorers and the holdings selector.
// The three variants share one interface so filtering, selection and
// reconciliation run identically regardless of which one is active.
package strategy

import (
	"spot-rotation-bot/internal/indicator"
	"spot-rotation-bot/internal/market"
)

// Direction is a ternary trade signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// Mode distinguishes how a scorer's output is consumed.
type Mode string

const (
	// ModeRanking scores the whole filtered universe and holds the top N.
	ModeRanking Mode = "ranking"
	// ModeDirectional emits per-symbol LONG/SHORT/NONE decisions over a
	// configured symbol list.
	ModeDirectional Mode = "directional"
)

// Input bundles the per-symbol data a scorer may consume. Either field may
// be nil when the corresponding fetch failed or was not needed; scorers
// reject such inputs instead of scoring partial data.
type Input struct {
	Ticker     *market.TickerSnapshot
	Indicators *indicator.Set
}

// Evaluation is one symbol's outcome for one cycle. Scored is false for
// direction-only variants; an Evaluation is only produced when every input
// the variant needs was defined, so a returned Score is always comparable.
type Evaluation struct {
	Symbol    string    `json:"symbol"`
	Score     float64   `json:"score"`
	Scored    bool      `json:"scored"`
	Direction Direction `json:"direction"`
}

// Scorer converts one symbol's market snapshot into an Evaluation.
type Scorer interface {
	// Name returns the variant name.
	Name() string

	// Mode reports how the variant's output is consumed.
	Mode() Mode

	// NeedsCandles reports whether Evaluate requires Input.Indicators.
	// Ranking variants that work on 24h ticker stats alone skip the
	// per-symbol candle fetch entirely.
	NeedsCandles() bool

	// Evaluate scores one symbol. ok is false when a required input is
	// missing or undefined; the symbol is then excluded from the cycle,
	// never scored with a default value.
	Evaluate(symbol string, in Input) (Evaluation, bool)
}
