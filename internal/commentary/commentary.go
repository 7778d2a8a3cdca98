// Package commentary asks an LLM to write a short narrative review of a
// completed evaluation run.
package commentary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/llm"
	"github.com/mhollert/bret/internal/runner"
)

// Writer turns run results into prose via a single chat completion.
type Writer struct {
	llm    llm.Provider
	logger *zap.Logger
}

// NewWriter creates a commentary writer.
func NewWriter(provider llm.Provider, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		llm:    provider,
		logger: logger,
	}
}

// Write produces commentary for the run's results. Failed instruments are
// mentioned to the model but not analyzed.
func (w *Writer) Write(ctx context.Context, params backtest.Params, results []runner.Result) (string, error) {
	if len(results) == 0 {
		return "", core.WrapError(core.ErrNoData, errors.New("no results to review"))
	}

	res, err := w.llm.Complete(ctx, llm.Request{
		System:    commentarySystemPrompt,
		Prompt:    buildPrompt(params, results),
		MaxTokens: 1024,
	})
	if err != nil {
		return "", err
	}

	w.logger.Debug("commentary generated",
		zap.String("provider", w.llm.Name()),
		zap.Int("input_tokens", res.InputTokens),
		zap.Int("output_tokens", res.OutputTokens),
	)
	return strings.TrimSpace(res.Text), nil
}

func buildPrompt(params backtest.Params, results []runner.Result) string {
	var sb strings.Builder

	sb.WriteString("## Rule Parameters:\n")
	fmt.Fprintf(&sb, "- Lookback: %d bars\n", params.Lookback)
	fmt.Fprintf(&sb, "- Retest lookahead: %d bars\n", params.RetestLookahead)
	fmt.Fprintf(&sb, "- Risk per trade: %.2f%% of balance\n", params.RiskPerTrade*100)
	fmt.Fprintf(&sb, "- Reward:risk: %.1f\n\n", params.RewardRisk)

	for _, res := range results {
		fmt.Fprintf(&sb, "## %s\n", res.Instrument)
		if res.Err != nil {
			fmt.Fprintf(&sb, "- Evaluation failed: %v\n\n", res.Err)
			continue
		}

		fmt.Fprintf(&sb, "- Period: %s to %s (%d bars)\n",
			res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"), res.Bars)
		fmt.Fprintf(&sb, "- Signals: %d\n", len(res.Signals))
		if sim := res.Simulation; sim != nil {
			fmt.Fprintf(&sb, "- Wins: %d, Losses: %d, Open: %d\n", sim.Wins, sim.Losses, sim.Open)
			fmt.Fprintf(&sb, "- Final balance: %.2f\n", sim.FinalBalance)
		}
		if r := res.Report; r != nil {
			for _, m := range r.Metrics() {
				fmt.Fprintf(&sb, "- %s: %.2f\n", m.Name, m.Value)
			}
		} else {
			sb.WriteString("- No settled trades.\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Task:\n")
	sb.WriteString("Write a short review of this breakout-and-retest evaluation:\n")
	sb.WriteString("1. How the rule performed overall and per instrument\n")
	sb.WriteString("2. Whether the risk/reward profile looks sustainable\n")
	sb.WriteString("3. What to scrutinize before trusting these numbers\n")
	sb.WriteString("\nKeep it under 200 words. Plain text, no markdown.\n")

	return sb.String()
}

const commentarySystemPrompt = `You are a quantitative trading reviewer. You are given the results of a breakout-and-retest rule evaluated on historical data.

Your job is to describe what the numbers say, not to sell the strategy:
1. Summarize performance honestly, including weak results
2. Point out small sample sizes, short histories, and other reasons the statistics may not hold up
3. Never suggest the results guarantee future returns

Write plain prose. No bullet lists, no headers, no hype.`
