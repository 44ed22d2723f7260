package scanner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spot-rotation-bot/internal/indicator"
	"spot-rotation-bot/internal/market"
	"spot-rotation-bot/internal/strategy"
)

// fakeData serves canned candles and fails on demand per symbol.
type fakeData struct {
	mu      sync.Mutex
	candles map[string][]market.Candle
	fail    map[string]error
	calls   int
}

func (f *fakeData) TickerUniverse(ctx context.Context) ([]market.TickerSnapshot, error) {
	return nil, nil
}

func (f *fakeData) Candles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.fail[symbol]; ok {
		return nil, err
	}
	return f.candles[symbol], nil
}

func (f *fakeData) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

func risingCandles(n int) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		c := 100 + float64(i)
		candles[i] = market.Candle{Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return candles
}

func testConfig() Config {
	return Config{
		Interval:     "15m",
		CandleLimit:  100,
		Workers:      4,
		FetchTimeout: time.Second,
		Indicator:    indicator.Config{ShortWindow: 3, LongWindow: 8, RSIPeriod: 5},
	}
}

func tickers(symbols ...string) []market.TickerSnapshot {
	out := make([]market.TickerSnapshot, len(symbols))
	for i, s := range symbols {
		out[i] = market.TickerSnapshot{Symbol: s, QuoteVolume: 1e6, PriceChangePercent: 1}
	}
	return out
}

func TestEvaluateCompleteSet(t *testing.T) {
	data := &fakeData{candles: map[string][]market.Candle{
		"AAAUSDT": risingCandles(20),
		"BBBUSDT": risingCandles(20),
		"CCCUSDT": risingCandles(20),
	}}
	s := New(data, strategy.NewManiaScorer(1.0, 75), testConfig(), zerolog.Nop())

	evals := s.Evaluate(context.Background(), tickers("AAAUSDT", "BBBUSDT", "CCCUSDT"))

	if len(evals) != 3 {
		t.Fatalf("expected a complete set of 3 evaluations, got %d", len(evals))
	}
	for i := 1; i < len(evals); i++ {
		if evals[i-1].Symbol >= evals[i].Symbol {
			t.Errorf("evaluations not ordered by symbol: %v", evals)
		}
	}
}

func TestEvaluateDropsFailingSymbol(t *testing.T) {
	data := &fakeData{
		candles: map[string][]market.Candle{
			"AAAUSDT": risingCandles(20),
			"CCCUSDT": risingCandles(20),
		},
		fail: map[string]error{
			"BBBUSDT": market.NewTransientError("candles", context.DeadlineExceeded),
		},
	}
	s := New(data, strategy.NewManiaScorer(1.0, 75), testConfig(), zerolog.Nop())

	evals := s.Evaluate(context.Background(), tickers("AAAUSDT", "BBBUSDT", "CCCUSDT"))

	if len(evals) != 2 {
		t.Fatalf("expected failing symbol to be dropped, got %d evals", len(evals))
	}
	for _, ev := range evals {
		if ev.Symbol == "BBBUSDT" {
			t.Error("failing symbol must not appear in results")
		}
	}
}

func TestEvaluateDropsMalformedSymbol(t *testing.T) {
	data := &fakeData{
		candles: map[string][]market.Candle{
			"AAAUSDT": risingCandles(20),
		},
		fail: map[string]error{
			"BADUSDT": &market.MalformedDataError{Symbol: "BADUSDT", Reason: "unparseable kline field"},
		},
	}
	s := New(data, strategy.NewManiaScorer(1.0, 75), testConfig(), zerolog.Nop())

	evals := s.Evaluate(context.Background(), tickers("AAAUSDT", "BADUSDT"))

	if len(evals) != 1 || evals[0].Symbol != "AAAUSDT" {
		t.Fatalf("expected only AAAUSDT to survive a malformed peer, got %v", evals)
	}
}

func TestEvaluateDropsShortHistory(t *testing.T) {
	data := &fakeData{candles: map[string][]market.Candle{
		"AAAUSDT": risingCandles(3), // below the long window
		"BBBUSDT": risingCandles(20),
	}}
	s := New(data, strategy.NewPullbackScorer(0.003), testConfig(), zerolog.Nop())

	evals := s.Evaluate(context.Background(), tickers("AAAUSDT", "BBBUSDT"))

	if len(evals) != 1 || evals[0].Symbol != "BBBUSDT" {
		t.Errorf("expected only BBBUSDT, got %v", evals)
	}
}

func TestEvaluateTickerOnlyScorerSkipsCandleFetch(t *testing.T) {
	data := &fakeData{}
	s := New(data, strategy.NewBeautyScorer(0.5), testConfig(), zerolog.Nop())

	evals := s.Evaluate(context.Background(), tickers("AAAUSDT", "BBBUSDT"))

	if len(evals) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(evals))
	}
	if data.calls != 0 {
		t.Errorf("ticker-only scorer must not fetch candles, got %d calls", data.calls)
	}
}
