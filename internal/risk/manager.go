// Package risk evaluates exit conditions for open positions.
package risk

import (
	"fmt"

	"spot-rotation-bot/internal/ledger"
)

// ExitReason tells why a position should be closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
)

// Exit is an instruction to close the full tracked quantity of a position.
type Exit struct {
	Symbol string
	Reason ExitReason
	PnLPct float64
}

func (e Exit) String() string {
	return fmt.Sprintf("%s %s at %+.2f%%", e.Symbol, e.Reason, e.PnLPct*100)
}

// Config holds the exit thresholds. Both must be positive fractions, which
// also makes take-profit and stop-loss mutually exclusive per evaluation.
type Config struct {
	TakeProfitPct float64
	StopLossPct   float64
}

// Manager applies fixed take-profit / stop-loss rules against live prices.
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// PnLPct returns the signed profit fraction of a position at currentPrice.
// For shorts, profit is measured as (entry - current) / entry so the sign
// convention is symmetric with longs.
func PnLPct(pos ledger.Position, currentPrice float64) float64 {
	if pos.EntryPrice == 0 {
		return 0
	}
	switch pos.Side {
	case ledger.SideLong:
		return (currentPrice - pos.EntryPrice) / pos.EntryPrice
	case ledger.SideShort:
		return (pos.EntryPrice - currentPrice) / pos.EntryPrice
	default:
		return 0
	}
}

// Assess returns an Exit when the position hit its take-profit or stop-loss
// threshold, or nil to keep holding. Exits always cover the full quantity.
func (m *Manager) Assess(pos ledger.Position, currentPrice float64) *Exit {
	if pos.Side == ledger.SideFlat {
		return nil
	}

	pnl := PnLPct(pos, currentPrice)
	switch {
	case pnl >= m.cfg.TakeProfitPct:
		return &Exit{Symbol: pos.Symbol, Reason: ExitTakeProfit, PnLPct: pnl}
	case pnl <= -m.cfg.StopLossPct:
		return &Exit{Symbol: pos.Symbol, Reason: ExitStopLoss, PnLPct: pnl}
	default:
		return nil
	}
}
