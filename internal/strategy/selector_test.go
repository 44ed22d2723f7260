package strategy

import (
	"math"
	"reflect"
	"testing"
)

func TestSelectTopBoundAndOrder(t *testing.T) {
	evals := []Evaluation{
		{Symbol: "AAAUSDT", Score: 1.0, Scored: true},
		{Symbol: "BBBUSDT", Score: 3.0, Scored: true},
		{Symbol: "CCCUSDT", Score: 2.0, Scored: true},
	}

	got := SelectTop(evals, 2)
	want := []Desired{
		{Symbol: "BBBUSDT", Direction: DirectionLong},
		{Symbol: "CCCUSDT", Direction: DirectionLong},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSelectTopLexicalTieBreak(t *testing.T) {
	evals := []Evaluation{
		{Symbol: "ZZZUSDT", Score: 5.0, Scored: true},
		{Symbol: "AAAUSDT", Score: 5.0, Scored: true},
	}

	got := SelectTop(evals, 2)
	if got[0].Symbol != "AAAUSDT" || got[1].Symbol != "ZZZUSDT" {
		t.Errorf("expected lexical tie-break, got %v", got)
	}
}

func TestSelectTopExcludesUnscored(t *testing.T) {
	evals := []Evaluation{
		{Symbol: "AAAUSDT", Score: 100, Scored: false},
		{Symbol: "BBBUSDT", Score: math.NaN(), Scored: true},
		{Symbol: "CCCUSDT", Score: 1.0, Scored: true},
	}

	got := SelectTop(evals, 3)
	if len(got) != 1 || got[0].Symbol != "CCCUSDT" {
		t.Errorf("expected only CCCUSDT, got %v", got)
	}
}

func TestSelectTopNeverExceedsTopN(t *testing.T) {
	evals := make([]Evaluation, 50)
	for i := range evals {
		evals[i] = Evaluation{Symbol: string(rune('A'+i%26)) + "USDT", Score: float64(i), Scored: true}
	}

	if got := SelectTop(evals, 5); len(got) > 5 {
		t.Errorf("expected at most 5 selections, got %d", len(got))
	}
	if got := SelectTop(evals, 0); got != nil {
		t.Errorf("expected nil for topN=0, got %v", got)
	}
}

func TestSelectDirectionalKeepsHeld(t *testing.T) {
	held := []Desired{{Symbol: "ETHUSDT", Direction: DirectionLong}}
	evals := []Evaluation{
		{Symbol: "ETHUSDT", Direction: DirectionNone},
	}

	got := SelectDirectional(evals, held)
	if !reflect.DeepEqual(got, held) {
		t.Errorf("held position must stay desired, got %v", got)
	}
}

func TestSelectDirectionalAddsSignaled(t *testing.T) {
	evals := []Evaluation{
		{Symbol: "SOLUSDT", Direction: DirectionShort},
		{Symbol: "BTCUSDT", Direction: DirectionLong},
		{Symbol: "DOTUSDT", Direction: DirectionNone},
	}

	got := SelectDirectional(evals, nil)
	want := []Desired{
		{Symbol: "BTCUSDT", Direction: DirectionLong},
		{Symbol: "SOLUSDT", Direction: DirectionShort},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSelectDirectionalNoDuplicateForHeldSymbol(t *testing.T) {
	held := []Desired{{Symbol: "ETHUSDT", Direction: DirectionLong}}
	evals := []Evaluation{
		{Symbol: "ETHUSDT", Direction: DirectionShort},
	}

	got := SelectDirectional(evals, held)
	if len(got) != 1 {
		t.Fatalf("expected a single entry, got %v", got)
	}
	if got[0].Direction != DirectionLong {
		t.Errorf("held direction must win, got %s", got[0].Direction)
	}
}
