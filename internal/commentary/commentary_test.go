package commentary

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/llm"
	"github.com/mhollert/bret/internal/runner"
)

type stubLLM struct {
	lastReq llm.Request
	reply   string
	err     error
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (llm.Result, error) {
	s.lastReq = req
	if s.err != nil {
		return llm.Result{}, s.err
	}
	return llm.Result{Text: s.reply, InputTokens: 100, OutputTokens: 50}, nil
}

func sampleParams() backtest.Params {
	return backtest.Params{
		Lookback:        40,
		RetestLookahead: 20,
		InitialBalance:  10000,
		RiskPerTrade:    0.01,
		RewardRisk:      2.0,
	}
}

func sampleResults() []runner.Result {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []runner.Result{
		{
			Instrument: "BTCUSDT",
			Bars:       5000,
			Start:      start,
			End:        start.Add(5000 * time.Hour),
			Signals:    backtest.Signals{45: core.DirectionLong},
			Simulation: &backtest.Simulation{
				Wins: 8, Losses: 6, Open: 1, FinalBalance: 10230,
			},
			Report: &backtest.Report{
				TotalReturn:      0.023,
				AnnualizedReturn: 0.041,
				TradesPerYear:    24.5,
				SharpeRatio:      0.6,
				MaxDrawdown:      -0.03,
				CalmarRatio:      1.37,
				Years:            0.57,
				Steps:            14,
			},
		},
		{
			Instrument: "MISSING",
			Err:        errors.New("no data"),
		},
	}
}

func TestWriter_Write(t *testing.T) {
	stub := &stubLLM{reply: "  A modest but consistent quarter.\n"}
	w := NewWriter(stub, nil)

	out, err := w.Write(context.Background(), sampleParams(), sampleResults())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if out != "A modest but consistent quarter." {
		t.Errorf("Write() = %q, want trimmed reply", out)
	}

	if stub.lastReq.System == "" {
		t.Error("system prompt not set")
	}

	prompt := stub.lastReq.Prompt
	for _, want := range []string{
		"## Rule Parameters:",
		"Lookback: 40 bars",
		"Risk per trade: 1.00% of balance",
		"## BTCUSDT",
		"Wins: 8, Losses: 6, Open: 1",
		"Total Return (%)",
		"## MISSING",
		"Evaluation failed",
		"## Task:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestWriter_Write_NoSettledTrades(t *testing.T) {
	stub := &stubLLM{reply: "Nothing settled."}
	w := NewWriter(stub, nil)

	results := []runner.Result{{
		Instrument: "FLATUSDT",
		Bars:       100,
		Simulation: &backtest.Simulation{FinalBalance: 10000},
	}}
	if _, err := w.Write(context.Background(), sampleParams(), results); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(stub.lastReq.Prompt, "No settled trades.") {
		t.Error("prompt should note the lack of settled trades")
	}
}

func TestWriter_Write_EmptyResults(t *testing.T) {
	w := NewWriter(&stubLLM{}, nil)
	_, err := w.Write(context.Background(), sampleParams(), nil)
	if !errors.Is(err, core.ErrNoData) {
		t.Errorf("Write() error = %v, want ErrNoData", err)
	}
}

func TestWriter_Write_ProviderError(t *testing.T) {
	stub := &stubLLM{err: core.WrapError(core.ErrLLMFailed, errors.New("rate limited"))}
	w := NewWriter(stub, nil)

	_, err := w.Write(context.Background(), sampleParams(), sampleResults())
	if !errors.Is(err, core.ErrLLMFailed) {
		t.Errorf("Write() error = %v, want ErrLLMFailed", err)
	}
}

func TestBuildPrompt_NaNMetricsRender(t *testing.T) {
	results := sampleResults()
	results[0].Report.SharpeRatio = math.NaN()

	prompt := buildPrompt(sampleParams(), results[:1])
	if !strings.Contains(prompt, "Sharpe Ratio: NaN") {
		t.Errorf("prompt should carry NaN verbatim:\n%s", prompt)
	}
}
