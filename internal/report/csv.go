package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/core"
)

// EquityCSV encodes the equity sequence as time,balance rows.
func EquityCSV(equity []core.EquityPoint) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"time", "balance"}); err != nil {
		return nil, err
	}
	for _, p := range equity {
		row := []string{
			fmtTime(p.Time),
			fmtFloat(p.Balance),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TradesCSV encodes the trade list. Open trades leave exit_time empty.
func TradesCSV(trades []backtest.Trade) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"entry_index",
		"entry_time",
		"direction",
		"entry",
		"stop",
		"target",
		"risk",
		"exit_index",
		"exit_time",
		"outcome",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, t := range trades {
		exitTime := ""
		if t.IsResolved() {
			exitTime = fmtTime(t.ExitTime)
		}
		row := []string{
			strconv.Itoa(t.EntryIndex),
			fmtTime(t.EntryTime),
			string(t.Direction),
			fmtFloat(t.Entry),
			fmtFloat(t.Stop),
			fmtFloat(t.Target),
			fmtFloat(t.Risk),
			strconv.Itoa(t.ExitIndex),
			exitTime,
			string(t.Outcome),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
