// Package indicator computes rolling technical indicators from a candle
// series. Computation is a pure function of the input series: no state is
// kept between calls and symbols are fully independent.
package indicator

import (
	"errors"

	"spot-rotation-bot/internal/market"
)

// ErrInsufficientHistory is returned when the candle series is shorter than
// the largest indicator window. A Set is never partially populated: either
// every field is defined or the computation fails.
var ErrInsufficientHistory = errors.New("insufficient candle history for indicator windows")

// rsiEpsilon keeps RS finite when the trailing window has zero average loss.
const rsiEpsilon = 1e-9

// Set holds the indicator values for the most recent candle of one series.
type Set struct {
	MAShort     float64
	MALong      float64
	RSI         float64
	RollingHigh float64
	RollingLow  float64
	LastClose   float64
}

// Config holds the rolling window lengths.
type Config struct {
	ShortWindow int
	LongWindow  int
	RSIPeriod   int
}

// MinCandles returns the shortest series the config can be computed from.
// RSI needs one extra candle to form rsiPeriod close-to-close deltas.
func (c Config) MinCandles() int {
	n := c.LongWindow
	if c.ShortWindow > n {
		n = c.ShortWindow
	}
	if c.RSIPeriod+1 > n {
		n = c.RSIPeriod + 1
	}
	return n
}

// Compute derives a Set for the last candle of the series, or
// ErrInsufficientHistory when the series is shorter than the largest window.
func Compute(candles []market.Candle, cfg Config) (Set, error) {
	if len(candles) < cfg.MinCandles() {
		return Set{}, ErrInsufficientHistory
	}

	return Set{
		MAShort:     sma(candles, cfg.ShortWindow),
		MALong:      sma(candles, cfg.LongWindow),
		RSI:         rsi(candles, cfg.RSIPeriod),
		RollingHigh: rollingHigh(candles, cfg.LongWindow),
		RollingLow:  rollingLow(candles, cfg.LongWindow),
		LastClose:   candles[len(candles)-1].Close,
	}, nil
}

// sma is the simple rolling mean of closes over the trailing window.
func sma(candles []market.Candle, period int) float64 {
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// rsi computes the Relative Strength Index over the trailing period,
// flooring gains and losses at zero and using rsiEpsilon to avoid division
// by zero when every delta is a gain.
func rsi(candles []market.Candle, period int) float64 {
	gains := 0.0
	losses := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	rs := avgGain / (avgLoss + rsiEpsilon)
	return 100 - (100 / (1 + rs))
}

func rollingHigh(candles []market.Candle, period int) float64 {
	high := candles[len(candles)-period].High
	for i := len(candles) - period + 1; i < len(candles); i++ {
		if candles[i].High > high {
			high = candles[i].High
		}
	}
	return high
}

func rollingLow(candles []market.Candle, period int) float64 {
	low := candles[len(candles)-period].Low
	for i := len(candles) - period + 1; i < len(candles); i++ {
		if candles[i].Low < low {
			low = candles[i].Low
		}
	}
	return low
}
