package strategy

import "math"

// BeautyScorer ranks the universe by a weighted blend of 24h price change
// and log-scaled quote volume. Alpha weights the price change component;
// the log10 keeps volume on a comparable range.
type BeautyScorer struct {
	Alpha float64
}

func NewBeautyScorer(alpha float64) *BeautyScorer {
	return &BeautyScorer{Alpha: alpha}
}

func (s *BeautyScorer) Name() string { return "beauty" }

func (s *BeautyScorer) Mode() Mode { return ModeRanking }

func (s *BeautyScorer) NeedsCandles() bool { return false }

func (s *BeautyScorer) Evaluate(symbol string, in Input) (Evaluation, bool) {
	if in.Ticker == nil {
		return Evaluation{}, false
	}

	volumeLog := math.Log10(in.Ticker.QuoteVolume + 1)
	score := s.Alpha*in.Ticker.PriceChangePercent + (1-s.Alpha)*volumeLog
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Evaluation{}, false
	}

	return Evaluation{
		Symbol:    symbol,
		Score:     score,
		Scored:    true,
		Direction: DirectionLong,
	}, true
}
