package indicator

import (
	"math"
	"testing"

	"spot-rotation-bot/internal/market"
)

func candlesFromCloses(closes []float64) []market.Candle {
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return candles
}

func TestComputeInsufficientHistory(t *testing.T) {
	cfg := Config{ShortWindow: 5, LongWindow: 25, RSIPeriod: 14}

	for _, n := range []int{0, 1, 5, 14, 24} {
		candles := candlesFromCloses(make([]float64, n))
		if _, err := Compute(candles, cfg); err != ErrInsufficientHistory {
			t.Errorf("len=%d: expected ErrInsufficientHistory, got %v", n, err)
		}
	}
}

func TestComputeMinCandlesBoundary(t *testing.T) {
	// RSI period dominates: 14 deltas need 15 candles.
	cfg := Config{ShortWindow: 3, LongWindow: 10, RSIPeriod: 14}
	if got := cfg.MinCandles(); got != 15 {
		t.Fatalf("expected MinCandles 15, got %d", got)
	}

	closes := make([]float64, 15)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	if _, err := Compute(candlesFromCloses(closes), cfg); err != nil {
		t.Fatalf("expected success at boundary length, got %v", err)
	}
}

func TestMovingAverages(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	cfg := Config{ShortWindow: 2, LongWindow: 5, RSIPeriod: 3}

	set, err := Compute(candlesFromCloses(closes), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if set.MAShort != 9.5 {
		t.Errorf("expected MAShort 9.5, got %f", set.MAShort)
	}
	if set.MALong != 8 {
		t.Errorf("expected MALong 8, got %f", set.MALong)
	}
	if set.LastClose != 10 {
		t.Errorf("expected LastClose 10, got %f", set.LastClose)
	}
}

func TestRSIMonotonicRise(t *testing.T) {
	// A strictly rising close sequence has zero average loss, so RSI must
	// saturate at (effectively) 100.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	cfg := Config{ShortWindow: 2, LongWindow: 5, RSIPeriod: 14}

	set, err := Compute(candlesFromCloses(closes), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if set.RSI < 99.999 || set.RSI > 100 {
		t.Errorf("expected RSI at saturation, got %f", set.RSI)
	}
}

func TestRSIMonotonicFall(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 200 - float64(i)*2
	}
	cfg := Config{ShortWindow: 2, LongWindow: 5, RSIPeriod: 14}

	set, err := Compute(candlesFromCloses(closes), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if set.RSI > 0.001 {
		t.Errorf("expected RSI near 0, got %f", set.RSI)
	}
}

func TestRSIBalanced(t *testing.T) {
	// Alternating equal gains and losses should sit near the 50 midpoint.
	closes := make([]float64, 21)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 102
		}
	}
	cfg := Config{ShortWindow: 2, LongWindow: 5, RSIPeriod: 14}

	set, err := Compute(candlesFromCloses(closes), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(set.RSI-50) > 1 {
		t.Errorf("expected RSI near 50, got %f", set.RSI)
	}
}

func TestRollingExtrema(t *testing.T) {
	candles := candlesFromCloses([]float64{10, 50, 20, 30, 25, 28})
	cfg := Config{ShortWindow: 2, LongWindow: 4, RSIPeriod: 3}

	set, err := Compute(candles, cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Window covers closes {20, 30, 25, 28}; highs are close+1, lows close-1.
	if set.RollingHigh != 31 {
		t.Errorf("expected RollingHigh 31, got %f", set.RollingHigh)
	}
	if set.RollingLow != 19 {
		t.Errorf("expected RollingLow 19, got %f", set.RollingLow)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	closes := []float64{10, 11, 9, 12, 14, 13, 15, 16, 14, 17}
	cfg := Config{ShortWindow: 3, LongWindow: 5, RSIPeriod: 4}

	first, err := Compute(candlesFromCloses(closes), cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compute(candlesFromCloses(closes), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("expected identical results, got %+v vs %+v", first, second)
	}
}
