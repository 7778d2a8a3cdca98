package report

import (
	"encoding/json"
	"time"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/runner"
)

// Manifest describes one archived run.
type Manifest struct {
	RunID       string        `json:"run_id"`
	CreatedAt   time.Time     `json:"created_at"`
	Timeframe   string        `json:"timeframe"`
	Params      ParamsPayload `json:"params"`
	Instruments []string      `json:"instruments"`
	Failed      int           `json:"failed"`
}

// Artifacts assembles the archive file set for a run: a manifest at the
// root plus report, equity and trade files per instrument. Paths are
// relative to the run directory.
func Artifacts(runID string, createdAt time.Time, results []runner.Result, params backtest.Params, timeframe core.Timeframe) (map[string][]byte, error) {
	artifacts := make(map[string][]byte)

	manifest := Manifest{
		RunID:       runID,
		CreatedAt:   createdAt.UTC(),
		Timeframe:   string(timeframe),
		Params:      paramsPayload(params),
		Instruments: make([]string, 0, len(results)),
		Failed:      runner.Failed(results),
	}

	for _, res := range results {
		manifest.Instruments = append(manifest.Instruments, res.Instrument)

		doc, err := JSON(Build(res, params, timeframe))
		if err != nil {
			return nil, err
		}
		artifacts[res.Instrument+"/report.json"] = doc

		if res.Simulation == nil {
			continue
		}
		equity, err := EquityCSV(res.Simulation.Equity)
		if err != nil {
			return nil, err
		}
		artifacts[res.Instrument+"/equity.csv"] = equity

		trades, err := TradesCSV(res.Simulation.Trades)
		if err != nil {
			return nil, err
		}
		artifacts[res.Instrument+"/trades.csv"] = trades
	}

	doc, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	artifacts["run.json"] = doc

	return artifacts, nil
}
