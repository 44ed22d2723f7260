// Package screener reduces the full ticker universe to the symbols eligible
// for scoring this cycle.
package screener

import (
	"strings"

	"spot-rotation-bot/internal/market"
	"spot-rotation-bot/internal/strategy"
)

// Config holds the universe filter rules.
type Config struct {
	// QuoteAsset keeps only pairs denominated in this asset, e.g. "USDT".
	QuoteAsset string
	// MinQuoteVolume drops pairs at or below this 24h quote volume.
	MinQuoteVolume float64
	// ExcludedBases drops pairs whose base asset is in the set, typically
	// stablecoins that should stay parked as cash.
	ExcludedBases []string
	// RequirePositiveChange additionally drops pairs with a non-positive
	// 24h price change. Forced on for ranking variants by ForMode;
	// directional ones may opt in.
	RequirePositiveChange bool
}

// ForMode returns the config adjusted for the scoring mode. The
// positive-change rule is not operator-optional for ranking variants.
func (c Config) ForMode(mode strategy.Mode) Config {
	if mode == strategy.ModeRanking {
		c.RequirePositiveChange = true
	}
	return c
}

// Screener applies the candidate filter rules. Filtering is idempotent:
// running an already-filtered list through the same config is a no-op.
type Screener struct {
	cfg      Config
	excluded map[string]bool
}

// New builds a Screener. An empty ExcludedBases list falls back to
// DefaultExcludedBases; the exclusion rule always applies.
func New(cfg Config) *Screener {
	if len(cfg.ExcludedBases) == 0 {
		cfg.ExcludedBases = DefaultExcludedBases
	}
	excluded := make(map[string]bool, len(cfg.ExcludedBases))
	for _, base := range cfg.ExcludedBases {
		excluded[strings.ToUpper(base)] = true
	}
	return &Screener{cfg: cfg, excluded: excluded}
}

// Filter returns the eligible subset of the universe. Output order follows
// input order but carries no meaning; the selector re-sorts.
func (s *Screener) Filter(universe []market.TickerSnapshot) []market.TickerSnapshot {
	eligible := make([]market.TickerSnapshot, 0, len(universe))
	for _, ticker := range universe {
		if !s.eligible(ticker) {
			continue
		}
		eligible = append(eligible, ticker)
	}
	return eligible
}

func (s *Screener) eligible(ticker market.TickerSnapshot) bool {
	if !strings.HasSuffix(ticker.Symbol, s.cfg.QuoteAsset) {
		return false
	}
	// A bare quote asset (e.g. symbol "USDT" itself) is not a pair.
	base := strings.TrimSuffix(ticker.Symbol, s.cfg.QuoteAsset)
	if base == "" {
		return false
	}
	if ticker.QuoteVolume <= s.cfg.MinQuoteVolume {
		return false
	}
	if s.excluded[strings.ToUpper(base)] {
		return false
	}
	if s.cfg.RequirePositiveChange && ticker.PriceChangePercent <= 0 {
		return false
	}
	return true
}

// DefaultExcludedBases is the stablecoin set excluded from the base asset
// side by default.
var DefaultExcludedBases = []string{
	"USDC", "BUSD", "TUSD", "DAI", "PAX", "USDP",
	"EUR", "GBP", "AUD", "UST", "FDUSD", "EURI", "AEUR",
}
