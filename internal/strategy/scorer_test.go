package strategy

import (
	"math"
	"testing"

	"spot-rotation-bot/internal/indicator"
	"spot-rotation-bot/internal/market"
)

func TestBeautyScore(t *testing.T) {
	scorer := NewBeautyScorer(0.5)

	ev, ok := scorer.Evaluate("BTCUSDT", Input{
		Ticker: &market.TickerSnapshot{
			Symbol:             "BTCUSDT",
			PriceChangePercent: 8.0,
			QuoteVolume:        999_999, // log10(1e6) = 6
		},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}

	want := 0.5*8.0 + 0.5*6.0
	if math.Abs(ev.Score-want) > 1e-9 {
		t.Errorf("expected score %f, got %f", want, ev.Score)
	}
	if ev.Direction != DirectionLong {
		t.Errorf("expected LONG direction, got %s", ev.Direction)
	}
}

func TestBeautyAlphaWeighting(t *testing.T) {
	// Alpha 1.0 ignores volume entirely.
	scorer := NewBeautyScorer(1.0)

	ev, ok := scorer.Evaluate("ETHUSDT", Input{
		Ticker: &market.TickerSnapshot{PriceChangePercent: 5.0, QuoteVolume: 1e9},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}
	if math.Abs(ev.Score-5.0) > 1e-9 {
		t.Errorf("expected score 5.0, got %f", ev.Score)
	}
}

func TestBeautyRejectsMissingTicker(t *testing.T) {
	scorer := NewBeautyScorer(0.5)
	if _, ok := scorer.Evaluate("BTCUSDT", Input{}); ok {
		t.Error("expected rejection without ticker data")
	}
}

func TestManiaShortSignal(t *testing.T) {
	// Overextension with overbought RSI flips the signal short.
	scorer := NewManiaScorer(1.0, 75)

	ev, ok := scorer.Evaluate("ETHUSDT", Input{
		Indicators: &indicator.Set{MAShort: 120, MALong: 100, RSI: 80},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}

	if ev.Direction != DirectionShort {
		t.Errorf("expected SHORT, got %s", ev.Direction)
	}
	// mania_ratio = 0.20, rsi excess = 0.5
	want := 0.20 + 0.5
	if math.Abs(ev.Score-want) > 1e-9 {
		t.Errorf("expected score %f, got %f", want, ev.Score)
	}
}

func TestManiaLongSignal(t *testing.T) {
	scorer := NewManiaScorer(1.0, 75)

	ev, ok := scorer.Evaluate("ETHUSDT", Input{
		Indicators: &indicator.Set{MAShort: 110, MALong: 100, RSI: 60},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}
	if ev.Direction != DirectionLong {
		t.Errorf("expected LONG, got %s", ev.Direction)
	}
}

func TestManiaNoSignal(t *testing.T) {
	scorer := NewManiaScorer(1.2, 75)

	// Short MA above long MA but below the mania factor threshold.
	ev, ok := scorer.Evaluate("ETHUSDT", Input{
		Indicators: &indicator.Set{MAShort: 110, MALong: 100, RSI: 60},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}
	if ev.Direction != DirectionNone {
		t.Errorf("expected NONE, got %s", ev.Direction)
	}
}

func TestManiaRejectsUndefinedInputs(t *testing.T) {
	scorer := NewManiaScorer(1.2, 75)

	if _, ok := scorer.Evaluate("ETHUSDT", Input{}); ok {
		t.Error("expected rejection without indicators")
	}
	if _, ok := scorer.Evaluate("ETHUSDT", Input{
		Indicators: &indicator.Set{MAShort: 10, MALong: 0, RSI: 50},
	}); ok {
		t.Error("expected rejection for non-positive long MA")
	}
}

func TestPullbackLongOnDip(t *testing.T) {
	scorer := NewPullbackScorer(0.003)

	// Uptrend, close 0.5% below the rolling high.
	ev, ok := scorer.Evaluate("ETHUSDT", Input{
		Indicators: &indicator.Set{
			MAShort:     105,
			MALong:      100,
			RollingHigh: 200,
			RollingLow:  150,
			LastClose:   199,
		},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}
	if ev.Direction != DirectionLong {
		t.Errorf("expected LONG, got %s", ev.Direction)
	}
}

func TestPullbackShortOnBounce(t *testing.T) {
	scorer := NewPullbackScorer(0.003)

	ev, ok := scorer.Evaluate("ETHUSDT", Input{
		Indicators: &indicator.Set{
			MAShort:     95,
			MALong:      100,
			RollingHigh: 200,
			RollingLow:  150,
			LastClose:   151,
		},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}
	if ev.Direction != DirectionShort {
		t.Errorf("expected SHORT, got %s", ev.Direction)
	}
}

func TestPullbackNoSignalWithoutRetrace(t *testing.T) {
	scorer := NewPullbackScorer(0.01)

	// Uptrend but price still at the high.
	ev, ok := scorer.Evaluate("ETHUSDT", Input{
		Indicators: &indicator.Set{
			MAShort:     105,
			MALong:      100,
			RollingHigh: 200,
			RollingLow:  150,
			LastClose:   200,
		},
	})
	if !ok {
		t.Fatal("expected evaluation")
	}
	if ev.Direction != DirectionNone {
		t.Errorf("expected NONE, got %s", ev.Direction)
	}
}

func TestPullbackRejectsUndefinedInputs(t *testing.T) {
	scorer := NewPullbackScorer(0.01)
	if _, ok := scorer.Evaluate("ETHUSDT", Input{}); ok {
		t.Error("expected rejection without indicators")
	}
}
