package risk

import (
	"math"
	"testing"

	"spot-rotation-bot/internal/ledger"
)

func TestAssessLong(t *testing.T) {
	m := NewManager(Config{TakeProfitPct: 0.10, StopLossPct: 0.05})
	pos := ledger.Position{Symbol: "ETHUSDT", Side: ledger.SideLong, EntryPrice: 100, Quantity: 1}

	tests := []struct {
		name   string
		price  float64
		reason ExitReason
		exit   bool
	}{
		{"take profit", 111, ExitTakeProfit, true},
		{"take profit boundary", 110, ExitTakeProfit, true},
		{"stop loss", 94, ExitStopLoss, true},
		{"stop loss boundary", 95, ExitStopLoss, true},
		{"hold", 103, "", false},
		{"hold small loss", 96, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit := m.Assess(pos, tt.price)
			if tt.exit {
				if exit == nil {
					t.Fatalf("expected exit at price %f", tt.price)
				}
				if exit.Reason != tt.reason {
					t.Errorf("expected %s, got %s", tt.reason, exit.Reason)
				}
			} else if exit != nil {
				t.Errorf("expected no exit at price %f, got %v", tt.price, exit)
			}
		})
	}
}

func TestAssessShortSymmetric(t *testing.T) {
	m := NewManager(Config{TakeProfitPct: 0.10, StopLossPct: 0.05})
	pos := ledger.Position{Symbol: "ETHUSDT", Side: ledger.SideShort, EntryPrice: 100, Quantity: 1}

	if exit := m.Assess(pos, 89); exit == nil || exit.Reason != ExitTakeProfit {
		t.Errorf("expected short TAKE_PROFIT at 89, got %v", exit)
	}
	if exit := m.Assess(pos, 106); exit == nil || exit.Reason != ExitStopLoss {
		t.Errorf("expected short STOP_LOSS at 106, got %v", exit)
	}
	if exit := m.Assess(pos, 97); exit != nil {
		t.Errorf("expected no exit at 97, got %v", exit)
	}
}

func TestAssessFlatNeverExits(t *testing.T) {
	m := NewManager(Config{TakeProfitPct: 0.10, StopLossPct: 0.05})
	pos := ledger.Position{Symbol: "ETHUSDT", Side: ledger.SideFlat}

	if exit := m.Assess(pos, 1); exit != nil {
		t.Errorf("expected nil for flat position, got %v", exit)
	}
}

func TestPnLPct(t *testing.T) {
	long := ledger.Position{Side: ledger.SideLong, EntryPrice: 200}
	if got := PnLPct(long, 220); math.Abs(got-0.10) > 1e-9 {
		t.Errorf("expected 0.10, got %f", got)
	}

	short := ledger.Position{Side: ledger.SideShort, EntryPrice: 200}
	if got := PnLPct(short, 220); math.Abs(got+0.10) > 1e-9 {
		t.Errorf("expected -0.10, got %f", got)
	}
}
