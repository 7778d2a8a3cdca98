package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/runner"
)

// Render writes the terminal summary for one result. Undefined metrics
// print as NaN, matching fmt's float formatting.
func Render(out io.Writer, res runner.Result) {
	fmt.Fprintf(out, "=== %s ===\n", res.Instrument)

	if res.Err != nil {
		fmt.Fprintf(out, "Evaluation failed: %v\n\n", res.Err)
		return
	}

	fmt.Fprintf(out, "Period:  %s to %s (%d bars)\n",
		res.Start.Format("2006-01-02 15:04"), res.End.Format("2006-01-02 15:04"), res.Bars)
	fmt.Fprintf(out, "Signals: %d\n", len(res.Signals))
	fmt.Fprintln(out)

	sim := res.Simulation
	if sim == nil || res.Report == nil {
		fmt.Fprintln(out, "No settled trades.")
		fmt.Fprintln(out)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE\t")
	fmt.Fprintln(w, "------\t-----\t")
	for _, m := range res.Report.Metrics() {
		fmt.Fprintf(w, "%s\t%.2f\t\n", m.Name, m.Value)
	}
	fmt.Fprintf(w, "Win Rate (%%)\t%.2f\t\n", backtest.Round2(sim.WinRate()*100))
	fmt.Fprintf(w, "Wins / Losses / Open\t%d / %d / %d\t\n", sim.Wins, sim.Losses, sim.Open)
	fmt.Fprintf(w, "Final Balance\t%.2f\t\n", sim.FinalBalance)
	w.Flush()
	fmt.Fprintln(out)
}

// RenderTrades writes the trade-by-trade table.
func RenderTrades(out io.Writer, trades []backtest.Trade) {
	if len(trades) == 0 {
		fmt.Fprintln(out, "No trades.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY TIME\tDIR\tENTRY\tSTOP\tTARGET\tRISK\tOUTCOME\tEXIT TIME\t")
	fmt.Fprintln(w, "----------\t---\t-----\t----\t------\t----\t-------\t---------\t")

	for _, t := range trades {
		exit := "-"
		if t.IsResolved() {
			exit = t.ExitTime.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%s\t\n",
			t.EntryTime.Format("2006-01-02 15:04"), t.Direction, t.Entry, t.Stop,
			t.Target, t.Risk, t.Outcome, exit)
	}
	w.Flush()
}
