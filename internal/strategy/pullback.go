package strategy

// PullbackScorer trades retracements within an established trend: in an
// uptrend (short MA above long MA) a dip of at least PullbackPct from the
// rolling high triggers a long entry; in a downtrend a bounce of at least
// PullbackPct off the rolling low triggers a short. Exits are left to the
// risk rules, which pair it with a wide take-profit and a tight stop.
type PullbackScorer struct {
	PullbackPct float64
}

func NewPullbackScorer(pullbackPct float64) *PullbackScorer {
	return &PullbackScorer{PullbackPct: pullbackPct}
}

func (s *PullbackScorer) Name() string { return "pullback" }

func (s *PullbackScorer) Mode() Mode { return ModeDirectional }

func (s *PullbackScorer) NeedsCandles() bool { return true }

func (s *PullbackScorer) Evaluate(symbol string, in Input) (Evaluation, bool) {
	ind := in.Indicators
	if ind == nil {
		return Evaluation{}, false
	}

	direction := DirectionNone
	switch {
	case ind.MAShort > ind.MALong:
		if ind.RollingHigh > 0 && (ind.RollingHigh-ind.LastClose)/ind.RollingHigh >= s.PullbackPct {
			direction = DirectionLong
		}
	case ind.MAShort < ind.MALong:
		if ind.RollingLow > 0 && (ind.LastClose-ind.RollingLow)/ind.RollingLow >= s.PullbackPct {
			direction = DirectionShort
		}
	}

	return Evaluation{
		Symbol:    symbol,
		Direction: direction,
	}, true
}
