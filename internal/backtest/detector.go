package backtest

import (
	"fmt"

	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/indicator"
)

// DetectSignals scans the series for breakout-then-retest events and returns
// a sparse bar-index to direction mapping.
//
// For each bar i with enough history, the zone is the high/low envelope of the
// Lookback bars before i (bar i excluded). A close above the zone high is an
// upward breakout; the first later bar within RetestLookahead whose low touches
// the broken level is labeled long. Downward breakouts mirror this with lows,
// highs and short labels.
//
// Overlapping breakouts may target the same bar; the most recent breakout wins
// and overwrites the earlier label.
func DetectSignals(series core.Series, p Params) (Signals, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(series) < p.MinBars() {
		return nil, core.WrapError(core.ErrInsufficientHistory,
			fmt.Errorf("%d bars, need at least %d", len(series), p.MinBars()))
	}

	highs := make([]float64, len(series))
	lows := make([]float64, len(series))
	for i, b := range series {
		highs[i] = b.High
		lows[i] = b.Low
	}

	// zoneHighs[k] covers highs[k : k+Lookback], so the zone for bar i
	// (window [i-Lookback, i)) sits at index i-Lookback.
	zoneHighs := indicator.RollingMax(highs, p.Lookback)
	zoneLows := indicator.RollingMin(lows, p.Lookback)

	signals := make(Signals)
	last := len(series) - 1 - p.RetestLookahead

	for i := p.Lookback; i <= last; i++ {
		zoneHigh := zoneHighs[i-p.Lookback]
		zoneLow := zoneLows[i-p.Lookback]

		switch {
		case series[i].Close > zoneHigh:
			for j := i + 1; j <= i+p.RetestLookahead; j++ {
				if series[j].Low <= zoneHigh {
					signals[j] = core.DirectionLong
					break
				}
			}
		case series[i].Close < zoneLow:
			for j := i + 1; j <= i+p.RetestLookahead; j++ {
				if series[j].High >= zoneLow {
					signals[j] = core.DirectionShort
					break
				}
			}
		}
	}

	return signals, nil
}
