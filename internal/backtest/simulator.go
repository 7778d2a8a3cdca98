package backtest

import (
	"fmt"

	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/indicator"
)

// Simulate walks the labeled series and resolves at most one position at a
// time against a running account balance.
//
// A signal opens a trade at that bar's close. The stop sits at the trailing
// window low (long) or high (short) over the Lookback bars before the signal
// bar; the target is the stop distance multiplied by RewardRisk on the other
// side of the entry. The amount at risk is balance * RiskPerTrade, fixed at
// entry. Resolution scans forward bar by bar; the stop condition is checked
// before the target condition on the same bar, so a bar satisfying both
// settles as a loss.
//
// Signals on bars inside an open trade's resolution scan are skipped; the walk
// resumes on the bar after resolution. A trade still open when the series ends
// keeps its OutcomeOpen marker: no balance change, no equity point.
//
// The returned equity sequence is seeded with the initial balance at the first
// evaluable bar and gains one point per resolved trade, ordered by resolution
// time.
func Simulate(series core.Series, signals Signals, p Params) (*Simulation, error) {
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
	stopHighs := indicator.RollingMax(highs, p.Lookback)
	stopLows := indicator.RollingMin(lows, p.Lookback)

	balance := p.InitialBalance
	sim := &Simulation{
		Equity: []core.EquityPoint{{Time: series[p.Lookback].Time, Balance: balance}},
	}

	for i := p.Lookback + 1; i < len(series); i++ {
		dir, ok := signals[i]
		if !ok {
			continue
		}

		entry := series[i].Close
		var stop float64
		if dir == core.DirectionLong {
			stop = stopLows[i-p.Lookback]
		} else {
			stop = stopHighs[i-p.Lookback]
		}

		var target float64
		if dir == core.DirectionLong {
			target = entry + (entry-stop)*p.RewardRisk
		} else {
			target = entry - (stop-entry)*p.RewardRisk
		}

		trade := Trade{
			Direction:  dir,
			EntryIndex: i,
			EntryTime:  series[i].Time,
			Entry:      entry,
			Stop:       stop,
			Target:     target,
			Risk:       balance * p.RiskPerTrade,
			ExitIndex:  -1,
			Outcome:    OutcomeOpen,
		}

		for j := i + 1; j < len(series); j++ {
			bar := series[j]

			if dir == core.DirectionLong {
				if bar.Low <= trade.Stop {
					trade.Outcome = OutcomeLost
				} else if bar.Close >= trade.Target {
					trade.Outcome = OutcomeWon
				}
			} else {
				if bar.High >= trade.Stop {
					trade.Outcome = OutcomeLost
				} else if bar.Close <= trade.Target {
					trade.Outcome = OutcomeWon
				}
			}

			if trade.IsResolved() {
				trade.ExitIndex = j
				trade.ExitTime = bar.Time
				break
			}
		}

		if !trade.IsResolved() {
			// Open through the last bar: no settlement, and no later
			// signal can be reached either.
			sim.Open++
			sim.Trades = append(sim.Trades, trade)
			break
		}

		if trade.IsWin() {
			balance += trade.Risk * p.RewardRisk
			sim.Wins++
		} else {
			balance -= trade.Risk
			sim.Losses++
		}
		sim.Equity = append(sim.Equity, core.EquityPoint{Time: trade.ExitTime, Balance: balance})
		sim.Trades = append(sim.Trades, trade)

		// Resume the walk after the resolution bar.
		i = trade.ExitIndex
	}

	sim.FinalBalance = balance
	return sim, nil
}
