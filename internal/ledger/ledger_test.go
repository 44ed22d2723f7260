package ledger

import (
	"errors"
	"testing"

	"spot-rotation-bot/internal/strategy"
)

func TestOpenCloseRoundTrip(t *testing.T) {
	l := New()

	if err := l.RecordOpen("BTCUSDT", SideLong, 50_000, 0.01); err != nil {
		t.Fatal(err)
	}

	pos := l.Get("BTCUSDT")
	if pos.Side != SideLong || pos.EntryPrice != 50_000 || pos.Quantity != 0.01 {
		t.Errorf("unexpected position %+v", pos)
	}

	if err := l.RecordClose("BTCUSDT"); err != nil {
		t.Fatal(err)
	}

	pos = l.Get("BTCUSDT")
	if pos.Side != SideFlat || pos.EntryPrice != 0 {
		t.Errorf("expected FLAT with no residual entry price, got %+v", pos)
	}
}

func TestRecordOpenOnOpenPositionFails(t *testing.T) {
	l := New()
	if err := l.RecordOpen("ETHUSDT", SideShort, 3_000, 0.1); err != nil {
		t.Fatal(err)
	}

	err := l.RecordOpen("ETHUSDT", SideLong, 3_100, 0.1)
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.From != SideShort {
		t.Errorf("expected From SHORT, got %s", ite.From)
	}
}

func TestRecordCloseOnFlatFails(t *testing.T) {
	l := New()

	err := l.RecordClose("ETHUSDT")
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestRecordOpenRejectsFlatSide(t *testing.T) {
	l := New()
	if err := l.RecordOpen("ETHUSDT", SideFlat, 3_000, 0.1); err == nil {
		t.Fatal("expected error opening with FLAT side")
	}
}

func TestReconcile(t *testing.T) {
	l := New()
	if err := l.RecordOpen("AAAUSDT", SideLong, 10, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordOpen("BBBUSDT", SideLong, 20, 1); err != nil {
		t.Fatal(err)
	}

	desired := []strategy.Desired{
		{Symbol: "BBBUSDT", Direction: strategy.DirectionLong},
		{Symbol: "CCCUSDT", Direction: strategy.DirectionLong},
	}

	plan := l.Reconcile(desired)

	if len(plan.ToOpen) != 1 || plan.ToOpen[0].Symbol != "CCCUSDT" {
		t.Errorf("expected to open CCCUSDT, got %v", plan.ToOpen)
	}
	if len(plan.ToClose) != 1 || plan.ToClose[0].Symbol != "AAAUSDT" {
		t.Errorf("expected to close AAAUSDT, got %v", plan.ToClose)
	}
}

func TestReconcileDisjoint(t *testing.T) {
	l := New()
	if err := l.RecordOpen("AAAUSDT", SideLong, 10, 1); err != nil {
		t.Fatal(err)
	}

	desired := []strategy.Desired{{Symbol: "AAAUSDT", Direction: strategy.DirectionLong}}
	plan := l.Reconcile(desired)

	closing := map[string]bool{}
	for _, pos := range plan.ToClose {
		closing[pos.Symbol] = true
	}
	for _, d := range plan.ToOpen {
		if closing[d.Symbol] {
			t.Errorf("symbol %s in both ToOpen and ToClose", d.Symbol)
		}
	}
	if len(plan.ToOpen) != 0 || len(plan.ToClose) != 0 {
		t.Errorf("expected empty plan for matching holdings, got %+v", plan)
	}
}

func TestHeld(t *testing.T) {
	l := New()
	if err := l.RecordOpen("ZZZUSDT", SideShort, 5, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.RecordOpen("AAAUSDT", SideLong, 5, 1); err != nil {
		t.Fatal(err)
	}

	held := l.Held()
	if len(held) != 2 {
		t.Fatalf("expected 2 held entries, got %d", len(held))
	}
	if held[0].Symbol != "AAAUSDT" || held[0].Direction != strategy.DirectionLong {
		t.Errorf("unexpected first entry %+v", held[0])
	}
	if held[1].Symbol != "ZZZUSDT" || held[1].Direction != strategy.DirectionShort {
		t.Errorf("unexpected second entry %+v", held[1])
	}
}
