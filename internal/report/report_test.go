package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/runner"
)

func sampleParams() backtest.Params {
	return backtest.Params{
		Lookback:        40,
		RetestLookahead: 20,
		InitialBalance:  10000,
		RiskPerTrade:    0.01,
		RewardRisk:      2.0,
	}
}

func sampleResult() runner.Result {
	entry := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(30 * time.Hour)
	later := entry.Add(80 * time.Hour)

	sim := &backtest.Simulation{
		Trades: []backtest.Trade{
			{
				Direction:  core.DirectionLong,
				EntryIndex: 45,
				EntryTime:  entry,
				Entry:      102,
				Stop:       100,
				Target:     106,
				Risk:       100,
				ExitIndex:  51,
				ExitTime:   exit,
				Outcome:    backtest.OutcomeWon,
			},
			{
				Direction:  core.DirectionShort,
				EntryIndex: 80,
				EntryTime:  later,
				Entry:      98,
				Stop:       100,
				Target:     94,
				Risk:       102,
				ExitIndex:  -1,
				Outcome:    backtest.OutcomeOpen,
			},
		},
		Equity: []core.EquityPoint{
			{Time: entry.Add(-time.Hour), Balance: 10000},
			{Time: exit, Balance: 10200},
		},
		Wins:         1,
		Losses:       0,
		Open:         1,
		FinalBalance: 10200,
	}

	rep := &backtest.Report{
		TotalReturn:      0.02,
		AnnualizedReturn: 0.3,
		TradesPerYear:    12.175,
		SharpeRatio:      math.NaN(),
		MaxDrawdown:      0,
		CalmarRatio:      math.NaN(),
		Years:            0.08,
		Steps:            1,
	}

	return runner.Result{
		Instrument: "BTCUSDT",
		Bars:       100,
		Start:      entry.Add(-45 * time.Hour),
		End:        entry.Add(100 * time.Hour),
		Signals:    backtest.Signals{45: core.DirectionLong, 80: core.DirectionShort},
		Simulation: sim,
		Report:     rep,
	}
}

func TestBuild(t *testing.T) {
	p := Build(sampleResult(), sampleParams(), core.Timeframe1h)

	if p.Instrument != "BTCUSDT" {
		t.Errorf("Instrument = %v, want BTCUSDT", p.Instrument)
	}
	if p.Timeframe != "1h" {
		t.Errorf("Timeframe = %v, want 1h", p.Timeframe)
	}
	if p.Signals != 2 {
		t.Errorf("Signals = %d, want 2", p.Signals)
	}
	if p.Params.Lookback != 40 || p.Params.RewardRisk != 2.0 {
		t.Errorf("Params = %+v", p.Params)
	}

	if p.Summary.Wins != 1 || p.Summary.Open != 1 {
		t.Errorf("Summary = %+v", p.Summary)
	}
	if p.Summary.WinRate == nil || *p.Summary.WinRate != 1.0 {
		t.Errorf("WinRate = %v, want 1.0", p.Summary.WinRate)
	}

	if p.Stats == nil {
		t.Fatal("Stats is nil")
	}
	if p.Stats.TotalReturn == nil || *p.Stats.TotalReturn != 0.02 {
		t.Errorf("TotalReturn = %v, want 0.02", p.Stats.TotalReturn)
	}
	if p.Stats.SharpeRatio != nil {
		t.Errorf("SharpeRatio = %v, want nil for NaN", *p.Stats.SharpeRatio)
	}

	if len(p.Trades) != 2 {
		t.Fatalf("len(Trades) = %d, want 2", len(p.Trades))
	}
	if p.Trades[0].ExitTime == nil {
		t.Error("settled trade should carry an exit time")
	}
	if p.Trades[1].ExitTime != nil {
		t.Error("open trade should not carry an exit time")
	}
	if p.Trades[1].ExitIndex != -1 {
		t.Errorf("open trade ExitIndex = %d, want -1", p.Trades[1].ExitIndex)
	}
}

func TestBuild_FailedResult(t *testing.T) {
	res := runner.Result{
		Instrument: "MISSING",
		Err:        errors.New("fetch blew up"),
	}
	p := Build(res, sampleParams(), core.Timeframe1h)

	if p.Error != "fetch blew up" {
		t.Errorf("Error = %v", p.Error)
	}
	if len(p.Trades) != 0 {
		t.Errorf("len(Trades) = %d, want 0", len(p.Trades))
	}
	if p.Stats != nil {
		t.Error("failed result should carry no stats")
	}
}

func TestJSON_RejectsNothing(t *testing.T) {
	data, err := JSON(Build(sampleResult(), sampleParams(), core.Timeframe1h))
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	if !strings.Contains(string(data), `"sharpe_ratio": null`) {
		t.Error("NaN sharpe should serialize as null")
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if decoded["instrument"] != "BTCUSDT" {
		t.Errorf("instrument = %v", decoded["instrument"])
	}
}

func TestArtifacts(t *testing.T) {
	created := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	results := []runner.Result{
		sampleResult(),
		{Instrument: "MISSING", Err: errors.New("no data")},
	}

	artifacts, err := Artifacts("run-1", created, results, sampleParams(), core.Timeframe1h)
	if err != nil {
		t.Fatalf("Artifacts() error = %v", err)
	}

	for _, path := range []string{
		"run.json",
		"BTCUSDT/report.json",
		"BTCUSDT/equity.csv",
		"BTCUSDT/trades.csv",
		"MISSING/report.json",
	} {
		if _, ok := artifacts[path]; !ok {
			t.Errorf("missing artifact %s", path)
		}
	}
	// Failed instruments contribute only a report
	if len(artifacts) != 5 {
		t.Errorf("len(artifacts) = %d, want 5", len(artifacts))
	}

	var manifest Manifest
	if err := json.Unmarshal(artifacts["run.json"], &manifest); err != nil {
		t.Fatalf("manifest round trip failed: %v", err)
	}
	if manifest.RunID != "run-1" {
		t.Errorf("RunID = %v", manifest.RunID)
	}
	if !manifest.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", manifest.CreatedAt, created)
	}
	if manifest.Failed != 1 {
		t.Errorf("Failed = %d, want 1", manifest.Failed)
	}
	if len(manifest.Instruments) != 2 {
		t.Errorf("Instruments = %v", manifest.Instruments)
	}
}

func TestEquityCSV(t *testing.T) {
	res := sampleResult()
	data, err := EquityCSV(res.Simulation.Equity)
	if err != nil {
		t.Fatalf("EquityCSV() error = %v", err)
	}

	want := "time,balance\n" +
		"2024-01-05T09:00:00Z,10000.000000\n" +
		"2024-01-06T16:00:00Z,10200.000000\n"
	if string(data) != want {
		t.Errorf("EquityCSV() =\n%s\nwant\n%s", data, want)
	}
}

func TestTradesCSV(t *testing.T) {
	res := sampleResult()
	data, err := TradesCSV(res.Simulation.Trades)
	if err != nil {
		t.Fatalf("TradesCSV() error = %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	if records[0][0] != "entry_index" || records[0][9] != "outcome" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][2] != "long" || records[1][9] != "won_by_target" {
		t.Errorf("settled row = %v", records[1])
	}
	if records[2][8] != "" {
		t.Errorf("open trade exit_time = %q, want empty", records[2][8])
	}
	if records[2][7] != "-1" {
		t.Errorf("open trade exit_index = %q, want -1", records[2][7])
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleResult())
	out := buf.String()

	for _, want := range []string{
		"=== BTCUSDT ===",
		"Signals: 2",
		"Total Return (%)",
		"Sharpe Ratio",
		"NaN",
		"Win Rate (%)",
		"1 / 0 / 1",
		"Final Balance",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_NoSettledTrades(t *testing.T) {
	res := sampleResult()
	res.Report = nil

	var buf bytes.Buffer
	Render(&buf, res)
	if !strings.Contains(buf.String(), "No settled trades.") {
		t.Errorf("output missing settlement note:\n%s", buf.String())
	}
}

func TestRender_FailedResult(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, runner.Result{Instrument: "X", Err: errors.New("boom")})
	if !strings.Contains(buf.String(), "Evaluation failed: boom") {
		t.Errorf("output missing failure line:\n%s", buf.String())
	}
}

func TestRenderTrades(t *testing.T) {
	var buf bytes.Buffer
	RenderTrades(&buf, sampleResult().Simulation.Trades)
	out := buf.String()

	if !strings.Contains(out, "ENTRY TIME") {
		t.Errorf("output missing header:\n%s", out)
	}
	if !strings.Contains(out, "long") || !strings.Contains(out, "short") {
		t.Errorf("output missing trade rows:\n%s", out)
	}
	if !strings.Contains(out, "won_by_target") {
		t.Errorf("output missing outcome:\n%s", out)
	}
}

func TestRenderTrades_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderTrades(&buf, nil)
	if !strings.Contains(buf.String(), "No trades.") {
		t.Errorf("output = %q", buf.String())
	}
}
