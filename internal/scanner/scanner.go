// Package scanner runs per-symbol scoring across the filtered candidate
// universe. Scoring is embarrassingly parallel, so candle fetches go
// through a bounded worker pool; a failing symbol is dropped from the
// cycle, never allowed to block or corrupt it.
package scanner

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"spot-rotation-bot/internal/indicator"
	"spot-rotation-bot/internal/market"
	"spot-rotation-bot/internal/strategy"
)

// Config controls candle fetching and pool sizing.
type Config struct {
	Interval     string
	CandleLimit  int
	Workers      int
	FetchTimeout time.Duration
	Indicator    indicator.Config
}

// Scanner evaluates the active scorer against each candidate symbol.
type Scanner struct {
	data   market.MarketDataGateway
	scorer strategy.Scorer
	cfg    Config
	logger zerolog.Logger
}

func New(data market.MarketDataGateway, scorer strategy.Scorer, cfg Config, logger zerolog.Logger) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	return &Scanner{
		data:   data,
		scorer: scorer,
		cfg:    cfg,
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// Evaluate scores every candidate and returns the complete set of
// evaluations for the cycle, ordered by symbol. Workers never touch shared
// state beyond their result channel; the ledger stays out of reach here.
func (s *Scanner) Evaluate(ctx context.Context, candidates []market.TickerSnapshot) []strategy.Evaluation {
	if !s.scorer.NeedsCandles() {
		return s.evaluateFromTickers(candidates)
	}
	return s.evaluateWithCandles(ctx, candidates)
}

func (s *Scanner) evaluateFromTickers(candidates []market.TickerSnapshot) []strategy.Evaluation {
	evals := make([]strategy.Evaluation, 0, len(candidates))
	for i := range candidates {
		ticker := candidates[i]
		ev, ok := s.scorer.Evaluate(ticker.Symbol, strategy.Input{Ticker: &ticker})
		if !ok {
			continue
		}
		evals = append(evals, ev)
	}
	sortEvals(evals)
	return evals
}

func (s *Scanner) evaluateWithCandles(ctx context.Context, candidates []market.TickerSnapshot) []strategy.Evaluation {
	jobs := make(chan market.TickerSnapshot, len(candidates))
	results := make(chan strategy.Evaluation, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if ev, ok := s.evaluateSymbol(ctx, ticker); ok {
					results <- ev
				}
			}
		}()
	}

	for _, ticker := range candidates {
		jobs <- ticker
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	evals := make([]strategy.Evaluation, 0, len(candidates))
	for ev := range results {
		evals = append(evals, ev)
	}
	sortEvals(evals)
	return evals
}

func (s *Scanner) evaluateSymbol(ctx context.Context, ticker market.TickerSnapshot) (strategy.Evaluation, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	candles, err := s.data.Candles(fetchCtx, ticker.Symbol, s.cfg.Interval, s.cfg.CandleLimit)
	if err != nil {
		// One symbol's fetch failure excludes only that symbol. Malformed
		// payloads are worth a louder signal than transient fetch errors:
		// they won't heal on the next cycle.
		if market.IsMalformed(err) {
			s.logger.Warn().Err(err).Str("symbol", ticker.Symbol).Msg("malformed market data, symbol skipped")
		} else {
			s.logger.Warn().Err(err).Str("symbol", ticker.Symbol).Msg("candle fetch failed, symbol skipped")
		}
		return strategy.Evaluation{}, false
	}

	set, err := indicator.Compute(candles, s.cfg.Indicator)
	if err != nil {
		if errors.Is(err, indicator.ErrInsufficientHistory) {
			s.logger.Debug().Str("symbol", ticker.Symbol).Msg("insufficient history, symbol skipped")
		} else {
			s.logger.Warn().Err(err).Str("symbol", ticker.Symbol).Msg("indicator computation failed")
		}
		return strategy.Evaluation{}, false
	}

	return s.scorer.Evaluate(ticker.Symbol, strategy.Input{Ticker: &ticker, Indicators: &set})
}

func sortEvals(evals []strategy.Evaluation) {
	sort.Slice(evals, func(i, j int) bool { return evals[i].Symbol < evals[j].Symbol })
}
