// Package report turns evaluation results into the artifacts a run leaves
// behind: terminal output, a JSON document, and CSV exports.
package report

import (
	"encoding/json"
	"math"
	"time"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/runner"
)

// Payload is the JSON document describing one instrument's evaluation.
// Undefined metrics are null rather than NaN, which encoding/json rejects.
type Payload struct {
	Instrument string         `json:"instrument"`
	Timeframe  string         `json:"timeframe"`
	Bars       int            `json:"bars"`
	Start      time.Time      `json:"start"`
	End        time.Time      `json:"end"`
	Params     ParamsPayload  `json:"params"`
	Signals    int            `json:"signals"`
	Summary    SummaryPayload `json:"summary"`
	Stats      *StatsPayload  `json:"stats,omitempty"`
	Trades     []TradePayload `json:"trades"`
	Error      string         `json:"error,omitempty"`
}

type ParamsPayload struct {
	Lookback        int     `json:"lookback"`
	RetestLookahead int     `json:"retest_lookahead"`
	InitialBalance  float64 `json:"initial_balance"`
	RiskPerTrade    float64 `json:"risk_per_trade"`
	RewardRisk      float64 `json:"reward_risk"`
}

type SummaryPayload struct {
	Wins         int      `json:"wins"`
	Losses       int      `json:"losses"`
	Open         int      `json:"open"`
	WinRate      *float64 `json:"win_rate"`
	FinalBalance float64  `json:"final_balance"`
}

type StatsPayload struct {
	TotalReturn      *float64 `json:"total_return"`
	AnnualizedReturn *float64 `json:"annualized_return"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	MaxDrawdown      *float64 `json:"max_drawdown"`
	CalmarRatio      *float64 `json:"calmar_ratio"`
	TradesPerYear    *float64 `json:"trades_per_year"`
	Years            *float64 `json:"years"`
	Steps            int      `json:"steps"`
}

type TradePayload struct {
	Direction  string     `json:"direction"`
	EntryIndex int        `json:"entry_index"`
	EntryTime  time.Time  `json:"entry_time"`
	Entry      float64    `json:"entry"`
	Stop       float64    `json:"stop"`
	Target     float64    `json:"target"`
	Risk       float64    `json:"risk"`
	ExitIndex  int        `json:"exit_index"`
	ExitTime   *time.Time `json:"exit_time,omitempty"`
	Outcome    string     `json:"outcome"`
}

// Build assembles the JSON payload for one result.
func Build(res runner.Result, params backtest.Params, timeframe core.Timeframe) Payload {
	p := Payload{
		Instrument: res.Instrument,
		Timeframe:  string(timeframe),
		Bars:       res.Bars,
		Start:      res.Start,
		End:        res.End,
		Params:     paramsPayload(params),
		Signals:    len(res.Signals),
		Trades:     []TradePayload{},
	}

	if res.Err != nil {
		p.Error = res.Err.Error()
		return p
	}

	if sim := res.Simulation; sim != nil {
		p.Summary = SummaryPayload{
			Wins:         sim.Wins,
			Losses:       sim.Losses,
			Open:         sim.Open,
			WinRate:      jsonFloat(sim.WinRate()),
			FinalBalance: sim.FinalBalance,
		}
		for _, t := range sim.Trades {
			p.Trades = append(p.Trades, tradePayload(t))
		}
	}

	if r := res.Report; r != nil {
		p.Stats = &StatsPayload{
			TotalReturn:      jsonFloat(r.TotalReturn),
			AnnualizedReturn: jsonFloat(r.AnnualizedReturn),
			SharpeRatio:      jsonFloat(r.SharpeRatio),
			MaxDrawdown:      jsonFloat(r.MaxDrawdown),
			CalmarRatio:      jsonFloat(r.CalmarRatio),
			TradesPerYear:    jsonFloat(r.TradesPerYear),
			Years:            jsonFloat(r.Years),
			Steps:            r.Steps,
		}
	}

	return p
}

// JSON marshals the payload with indentation for human inspection.
func JSON(p Payload) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

func paramsPayload(params backtest.Params) ParamsPayload {
	return ParamsPayload{
		Lookback:        params.Lookback,
		RetestLookahead: params.RetestLookahead,
		InitialBalance:  params.InitialBalance,
		RiskPerTrade:    params.RiskPerTrade,
		RewardRisk:      params.RewardRisk,
	}
}

func tradePayload(t backtest.Trade) TradePayload {
	tp := TradePayload{
		Direction:  string(t.Direction),
		EntryIndex: t.EntryIndex,
		EntryTime:  t.EntryTime,
		Entry:      t.Entry,
		Stop:       t.Stop,
		Target:     t.Target,
		Risk:       t.Risk,
		ExitIndex:  t.ExitIndex,
		Outcome:    string(t.Outcome),
	}
	if t.IsResolved() {
		exit := t.ExitTime
		tp.ExitTime = &exit
	}
	return tp
}

func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
