// Package ledger owns the authoritative symbol-to-position mapping and the
// desired-vs-actual reconciliation. Mutations happen only after the order
// gateway confirms acceptance; a rejected order leaves the ledger untouched.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"spot-rotation-bot/internal/strategy"
)

// Side is the tracked state of a position.
type Side string

const (
	SideFlat  Side = "FLAT"
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Position tracks one symbol's open state. A symbol with no recorded entry
// is implicitly FLAT.
type Position struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	OpenedAt   time.Time `json:"opened_at"`
}

// InvalidTransitionError reports a ledger mutation that violates the
// position state machine. It indicates a programming error in the caller.
type InvalidTransitionError struct {
	Symbol string
	From   Side
	Op     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s on %s while %s", e.Op, e.Symbol, e.From)
}

// Plan is the action set reconciling desired holdings against the ledger.
// ToOpen and ToClose are disjoint by construction.
type Plan struct {
	ToOpen  []strategy.Desired
	ToClose []Position
}

// Ledger tracks positions for the execution loop. It is owned by the loop
// goroutine; the lock only guards read access from the operator API.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]Position
}

func New() *Ledger {
	return &Ledger{positions: make(map[string]Position)}
}

// Get returns the tracked position for symbol, or a FLAT placeholder.
func (l *Ledger) Get(symbol string) Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos, ok := l.positions[symbol]; ok {
		return pos
	}
	return Position{Symbol: symbol, Side: SideFlat}
}

// Open returns every non-FLAT position, ordered by symbol.
func (l *Ledger) Open() []Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	open := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		open = append(open, pos)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Symbol < open[j].Symbol })
	return open
}

// Held returns the open positions rephrased as desired holdings, used by
// directional variants to keep holding until a risk exit.
func (l *Ledger) Held() []strategy.Desired {
	open := l.Open()
	held := make([]strategy.Desired, 0, len(open))
	for _, pos := range open {
		dir := strategy.DirectionLong
		if pos.Side == SideShort {
			dir = strategy.DirectionShort
		}
		held = append(held, strategy.Desired{Symbol: pos.Symbol, Direction: dir})
	}
	return held
}

// Reconcile computes the cycle's action set: close held symbols that fell
// out of the desired set, open desired symbols that are currently FLAT.
func (l *Ledger) Reconcile(desired []strategy.Desired) Plan {
	l.mu.RLock()
	defer l.mu.RUnlock()

	desiredSet := make(map[string]bool, len(desired))
	for _, d := range desired {
		desiredSet[d.Symbol] = true
	}

	var plan Plan
	for _, d := range desired {
		if _, held := l.positions[d.Symbol]; !held {
			plan.ToOpen = append(plan.ToOpen, d)
		}
	}
	for _, pos := range l.positions {
		if !desiredSet[pos.Symbol] {
			plan.ToClose = append(plan.ToClose, pos)
		}
	}
	sort.Slice(plan.ToClose, func(i, j int) bool { return plan.ToClose[i].Symbol < plan.ToClose[j].Symbol })
	return plan
}

// RecordOpen registers a position after the gateway accepted the opening
// order. The entry price is fixed here and never recomputed afterwards.
func (l *Ledger) RecordOpen(symbol string, side Side, entryPrice, quantity float64) error {
	if side != SideLong && side != SideShort {
		return &InvalidTransitionError{Symbol: symbol, From: side, Op: "open"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if pos, ok := l.positions[symbol]; ok {
		return &InvalidTransitionError{Symbol: symbol, From: pos.Side, Op: "open"}
	}
	l.positions[symbol] = Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		OpenedAt:   time.Now().UTC(),
	}
	return nil
}

// RecordClose resets a position to FLAT after the gateway accepted the
// closing order.
func (l *Ledger) RecordClose(symbol string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[symbol]; !ok {
		return &InvalidTransitionError{Symbol: symbol, From: SideFlat, Op: "close"}
	}
	delete(l.positions, symbol)
	return nil
}
