// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mhollert/bret/internal/api/job"
	"github.com/mhollert/bret/internal/api/response"
	"github.com/mhollert/bret/internal/config"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/feed"
	"github.com/mhollert/bret/internal/metrics"
	"github.com/mhollert/bret/internal/report"
	"github.com/mhollert/bret/internal/runner"
)

const backtestTimeout = 5 * time.Minute

// BacktestRequest is the request body for starting an evaluation run.
// Every field is optional; omitted fields fall back to the server config.
type BacktestRequest struct {
	Instruments     []string `json:"instruments,omitempty"`
	Lookback        int      `json:"lookback,omitempty"`
	RetestLookahead int      `json:"retest_lookahead,omitempty"`
	InitialBalance  float64  `json:"initial_balance,omitempty"`
	RiskPerTrade    float64  `json:"risk_per_trade,omitempty"`
	RewardRisk      float64  `json:"reward_risk,omitempty"`
	Bars            int      `json:"bars,omitempty"`
}

// BacktestHandler runs breakout-and-retest evaluations as async jobs.
type BacktestHandler struct {
	jobStore *job.Store
	cfg      *config.Config
	provider feed.Provider
	registry *metrics.Registry
	logger   *zap.Logger
	active   atomic.Int64
}

// NewBacktestHandler creates a new backtest handler. registry may be nil
// when metrics are disabled.
func NewBacktestHandler(
	jobStore *job.Store,
	cfg *config.Config,
	provider feed.Provider,
	registry *metrics.Registry,
	logger *zap.Logger,
) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		jobStore: jobStore,
		cfg:      cfg,
		provider: provider,
		registry: registry,
		logger:   logger,
	}
}

// Create starts a new evaluation job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	runCfg, err := h.mergeConfig(req)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	j := h.jobStore.Create("backtest")

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	go h.runJob(jobID, runCfg)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id":      jobID,
		"status":      status,
		"instruments": runCfg.Instruments,
	})
}

// mergeConfig overlays request overrides on the server config and
// validates the result.
func (h *BacktestHandler) mergeConfig(req BacktestRequest) (*config.Config, error) {
	cfg := *h.cfg

	if len(req.Instruments) > 0 {
		cfg.Instruments = req.Instruments
	}
	if req.Lookback > 0 {
		cfg.Strategy.Lookback = req.Lookback
	}
	if req.RetestLookahead > 0 {
		cfg.Strategy.RetestLookahead = req.RetestLookahead
	}
	if req.InitialBalance > 0 {
		cfg.Strategy.InitialBalance = req.InitialBalance
	}
	if req.RiskPerTrade > 0 {
		cfg.Strategy.RiskPerTrade = req.RiskPerTrade
	}
	if req.RewardRisk > 0 {
		cfg.Strategy.RewardRisk = req.RewardRisk
	}
	if req.Bars > 0 {
		cfg.Data.Bars = req.Bars
	}

	if len(cfg.Instruments) == 0 {
		return nil, core.WrapError(core.ErrConfigMissing,
			errors.New("no instruments configured and none given in request"))
	}
	if err := cfg.Params().Validate(); err != nil {
		return nil, err
	}
	if min := cfg.Params().MinBars(); cfg.Data.Bars < min {
		return nil, core.WrapError(core.ErrConfigInvalid,
			errors.New("bars smaller than the configured windows require"))
	}

	return &cfg, nil
}

// runJob executes the evaluations and updates job status.
func (h *BacktestHandler) runJob(jobID string, cfg *config.Config) {
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})
	h.setActive(h.active.Add(1))
	defer func() { h.setActive(h.active.Add(-1)) }()

	ctx, cancel := context.WithTimeout(context.Background(), backtestTimeout)
	defer cancel()

	run := runner.New(cfg, h.provider, h.logger)
	params := cfg.Params()
	timeframe := core.Timeframe(cfg.Data.Timeframe)

	payloads := make([]report.Payload, 0, len(cfg.Instruments))
	for i, instrument := range cfg.Instruments {
		if ctx.Err() != nil {
			h.jobStore.Update(jobID, func(j *job.Job) {
				j.Status = job.StatusFailed
				j.Error = core.WrapError(core.ErrProviderTimeout, ctx.Err())
			})
			return
		}

		started := time.Now()
		res := run.Evaluate(ctx, instrument)
		h.observe(res, time.Since(started))

		payloads = append(payloads, report.Build(res, params, timeframe))

		progress := (i + 1) * 100 / len(cfg.Instruments)
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Progress = progress
		})
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = payloads
	})
}

// observe records per-evaluation metrics.
func (h *BacktestHandler) observe(res runner.Result, elapsed time.Duration) {
	if h.registry == nil {
		return
	}

	status := "ok"
	if res.Err != nil {
		status = "failed"
	}
	h.registry.RecordEvaluation(res.Instrument, status, elapsed.Seconds())

	byDirection := make(map[core.Direction]int)
	for _, dir := range res.Signals {
		byDirection[dir]++
	}
	for dir, n := range byDirection {
		h.registry.AddSignals(res.Instrument, string(dir), n)
	}

	if res.Simulation != nil {
		byOutcome := make(map[string]int)
		for _, t := range res.Simulation.Trades {
			byOutcome[string(t.Outcome)]++
		}
		for outcome, n := range byOutcome {
			h.registry.AddTrades(res.Instrument, outcome, n)
		}
	}
}

func (h *BacktestHandler) setActive(count int64) {
	if h.registry != nil {
		h.registry.SetJobsActive(int(count))
	}
}

// GetStatus returns the status of an evaluation job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	j, err := h.jobStore.Get(jobID)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

// List returns all known jobs, newest first.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobStore.List()

	items := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, map[string]any{
			"job_id":     j.ID,
			"status":     j.Status,
			"progress":   j.Progress,
			"created_at": j.CreatedAt,
		})
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"jobs": items,
	})
}
