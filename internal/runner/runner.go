// Package runner orchestrates the evaluation pipeline: fetch, validate,
// detect, simulate, analyze, one instrument at a time.
package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/config"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/feed"
)

// Result holds everything one instrument produced. Err is set when the
// pipeline could not finish; a nil Report with a nil Err means the run
// settled no trades, so there was nothing to grade.
type Result struct {
	Instrument string
	Bars       int
	Start      time.Time
	End        time.Time
	Signals    backtest.Signals
	Simulation *backtest.Simulation
	Report     *backtest.Report
	Err        error
}

// Runner evaluates the configured rule across a set of instruments.
type Runner struct {
	cfg      *config.Config
	provider feed.Provider
	logger   *zap.Logger
}

// New creates a Runner. A nil logger falls back to a no-op logger.
func New(cfg *config.Config, provider feed.Provider, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		provider: provider,
		logger:   logger,
	}
}

// EvaluateAll runs the rule over every configured instrument. Per-instrument
// failures are recorded in the Result, not returned; only an empty
// instrument list or a cancelled context aborts the batch.
func (r *Runner) EvaluateAll(ctx context.Context) ([]Result, error) {
	if len(r.cfg.Instruments) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing, errors.New("no instruments configured"))
	}

	results := make([]Result, 0, len(r.cfg.Instruments))
	for _, instrument := range r.cfg.Instruments {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		results = append(results, r.Evaluate(ctx, instrument))
	}
	return results, nil
}

// Evaluate runs the full pipeline for a single instrument.
func (r *Runner) Evaluate(ctx context.Context, instrument string) Result {
	res := Result{Instrument: instrument}
	log := r.logger.With(
		zap.String("instrument", instrument),
		zap.String("provider", r.provider.Name()),
	)
	params := r.cfg.Params()

	series, err := r.provider.Fetch(ctx, instrument, core.Timeframe(r.cfg.Data.Timeframe), r.cfg.Data.Bars)
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		res.Err = err
		return res
	}
	if err := series.Validate(); err != nil {
		log.Error("series rejected", zap.Error(err))
		res.Err = err
		return res
	}

	res.Bars = len(series)
	res.Start = series[0].Time
	res.End = series[len(series)-1].Time
	log.Debug("series loaded",
		zap.Int("bars", res.Bars),
		zap.Time("start", res.Start),
		zap.Time("end", res.End),
	)

	signals, err := backtest.DetectSignals(series, params)
	if err != nil {
		log.Error("signal detection failed", zap.Error(err))
		res.Err = err
		return res
	}
	res.Signals = signals

	sim, err := backtest.Simulate(series, signals, params)
	if err != nil {
		log.Error("simulation failed", zap.Error(err))
		res.Err = err
		return res
	}
	res.Simulation = sim

	report, err := backtest.Analyze(sim.Equity)
	if err != nil {
		if errors.Is(err, core.ErrDegenerateEquity) {
			// No settled trades. The run still counts; there is just
			// nothing to grade.
			log.Warn("no settled trades, skipping performance stats",
				zap.Int("signals", len(signals)),
				zap.Int("open", sim.Open),
			)
			return res
		}
		log.Error("performance analysis failed", zap.Error(err))
		res.Err = err
		return res
	}
	res.Report = report

	log.Info("evaluation complete",
		zap.Int("signals", len(signals)),
		zap.Int("trades", len(sim.Trades)),
		zap.Int("wins", sim.Wins),
		zap.Int("losses", sim.Losses),
		zap.Float64("final_balance", sim.FinalBalance),
	)
	return res
}

// Failed counts results whose pipeline did not finish.
func Failed(results []Result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
