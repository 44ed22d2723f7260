package strategy

// ManiaScorer detects price compression ("mania") from the ratio of the
// short moving average to a scaled long moving average, combined with RSI.
// While mania is forming and RSI is still below the overbought threshold it
// rides the move long; once RSI crosses the threshold the move is treated
// as exhausted and the signal flips short.
type ManiaScorer struct {
	ManiaFactor   float64
	RSIOverbought float64
}

func NewManiaScorer(maniaFactor, rsiOverbought float64) *ManiaScorer {
	return &ManiaScorer{ManiaFactor: maniaFactor, RSIOverbought: rsiOverbought}
}

func (s *ManiaScorer) Name() string { return "mania" }

func (s *ManiaScorer) Mode() Mode { return ModeDirectional }

func (s *ManiaScorer) NeedsCandles() bool { return true }

func (s *ManiaScorer) Evaluate(symbol string, in Input) (Evaluation, bool) {
	ind := in.Indicators
	if ind == nil {
		return Evaluation{}, false
	}
	// The mania ratio is only well-defined for a positive long MA.
	if ind.MALong <= 0 {
		return Evaluation{}, false
	}

	maniaRatio := ind.MAShort/(ind.MALong*s.ManiaFactor) - 1

	score := 0.0
	if maniaRatio > 0 {
		score += maniaRatio
	}
	if excess := (ind.RSI - s.RSIOverbought) / 10; excess > 0 {
		score += excess
	}

	direction := DirectionNone
	if maniaRatio > 0 {
		if ind.RSI >= s.RSIOverbought {
			direction = DirectionShort
		} else {
			direction = DirectionLong
		}
	}

	return Evaluation{
		Symbol:    symbol,
		Score:     score,
		Scored:    true,
		Direction: direction,
	}, true
}
