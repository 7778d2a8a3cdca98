package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/mhollert/bret/internal/core"
)

// Params holds the rule parameters shared by detection and simulation.
// One explicit value passed into every entry point, never package state.
type Params struct {
	Lookback        int
	RetestLookahead int
	InitialBalance  float64
	RiskPerTrade    float64
	RewardRisk      float64
}

// Validate checks the parameter ranges
func (p Params) Validate() error {
	if p.Lookback <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("lookback must be > 0, got %d", p.Lookback))
	}
	if p.RetestLookahead <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("retest lookahead must be > 0, got %d", p.RetestLookahead))
	}
	if p.InitialBalance <= 0 || math.IsNaN(p.InitialBalance) || math.IsInf(p.InitialBalance, 0) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("initial balance must be > 0, got %f", p.InitialBalance))
	}
	if p.RiskPerTrade <= 0 || p.RiskPerTrade > 1 || math.IsNaN(p.RiskPerTrade) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk per trade must be in (0,1], got %f", p.RiskPerTrade))
	}
	if p.RewardRisk <= 0 || math.IsNaN(p.RewardRisk) || math.IsInf(p.RewardRisk, 0) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("reward:risk must be > 0, got %f", p.RewardRisk))
	}
	return nil
}

// MinBars returns the shortest series the rule can evaluate
func (p Params) MinBars() int {
	return p.Lookback + p.RetestLookahead + 1
}

// Signals maps bar index to trade direction. Sparse, at most one per bar.
type Signals map[int]core.Direction

// Outcome classifies how a simulated trade ended
type Outcome string

const (
	OutcomeWon  Outcome = "won_by_target"
	OutcomeLost Outcome = "lost_by_stop"
	OutcomeOpen Outcome = "open_at_series_end"
)

// Trade represents one simulated position from entry to settlement
type Trade struct {
	Direction  core.Direction
	EntryIndex int
	EntryTime  time.Time
	Entry      float64
	Stop       float64
	Target     float64
	Risk       float64 // account currency at stake, fixed at entry
	ExitIndex  int     // -1 while open
	ExitTime   time.Time
	Outcome    Outcome
}

// IsResolved returns true if the trade hit its stop or target
func (t Trade) IsResolved() bool {
	return t.Outcome == OutcomeWon || t.Outcome == OutcomeLost
}

// IsWin returns true if the trade reached its target
func (t Trade) IsWin() bool {
	return t.Outcome == OutcomeWon
}

// Simulation holds the complete output of one simulation pass
type Simulation struct {
	Trades       []Trade
	Equity       []core.EquityPoint
	Wins         int
	Losses       int
	Open         int
	FinalBalance float64
}

// Resolved returns the number of trades that settled at stop or target
func (s *Simulation) Resolved() int {
	return s.Wins + s.Losses
}

// WinRate returns the fraction of resolved trades that won, NaN when none resolved
func (s *Simulation) WinRate() float64 {
	if s.Resolved() == 0 {
		return math.NaN()
	}
	return float64(s.Wins) / float64(s.Resolved())
}
