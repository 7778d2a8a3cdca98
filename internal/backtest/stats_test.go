package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mhollert/bret/internal/core"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func equityAt(t time.Time, balance float64) core.EquityPoint {
	return core.EquityPoint{Time: t, Balance: balance}
}

func TestAnalyze_SingleWin(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	equity := []core.EquityPoint{
		equityAt(t0, 10000),
		equityAt(t0.Add(30*24*time.Hour), 10200),
	}

	report, err := Analyze(equity)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !almostEqual(report.TotalReturn, 0.02, 1e-12) {
		t.Errorf("TotalReturn = %v, want 0.02", report.TotalReturn)
	}
	if report.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", report.MaxDrawdown)
	}
	if !math.IsNaN(report.CalmarRatio) {
		t.Errorf("CalmarRatio = %v, want NaN with no drawdown", report.CalmarRatio)
	}
	if !math.IsNaN(report.SharpeRatio) {
		t.Errorf("SharpeRatio = %v, want NaN with a single step", report.SharpeRatio)
	}
	// 30 days against a 365.25-day year.
	if !almostEqual(report.TradesPerYear, 12.175, 1e-9) {
		t.Errorf("TradesPerYear = %v, want 12.175", report.TradesPerYear)
	}
	if math.IsNaN(report.AnnualizedReturn) || report.AnnualizedReturn <= 0 {
		t.Errorf("AnnualizedReturn = %v, want a positive value", report.AnnualizedReturn)
	}

	metrics := report.Metrics()
	if metrics[0].Name != "Total Return (%)" || metrics[0].Value != 2.0 {
		t.Errorf("metrics[0] = %+v, want Total Return (%%) = 2.0", metrics[0])
	}
}

func TestAnalyze_TwoStepYear(t *testing.T) {
	// One year total: +10% then -5%. Hand-computed expectations:
	// total 4.5%, annualized 4.5%, two trades/year, Sharpe exactly 1/3,
	// max drawdown -5%, Calmar 0.9.
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	year := time.Duration(365.25*86400) * time.Second
	equity := []core.EquityPoint{
		equityAt(t0, 10000),
		equityAt(t0.Add(year/2), 11000),
		equityAt(t0.Add(year), 10450),
	}

	report, err := Analyze(equity)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !almostEqual(report.Years, 1.0, 1e-12) {
		t.Errorf("Years = %v, want 1.0", report.Years)
	}
	if !almostEqual(report.TotalReturn, 0.045, 1e-12) {
		t.Errorf("TotalReturn = %v, want 0.045", report.TotalReturn)
	}
	if !almostEqual(report.AnnualizedReturn, 0.045, 1e-12) {
		t.Errorf("AnnualizedReturn = %v, want 0.045", report.AnnualizedReturn)
	}
	if !almostEqual(report.TradesPerYear, 2.0, 1e-12) {
		t.Errorf("TradesPerYear = %v, want 2.0", report.TradesPerYear)
	}
	if !almostEqual(report.SharpeRatio, 1.0/3.0, 1e-9) {
		t.Errorf("SharpeRatio = %v, want 1/3", report.SharpeRatio)
	}
	if !almostEqual(report.MaxDrawdown, -0.05, 1e-9) {
		t.Errorf("MaxDrawdown = %v, want -0.05", report.MaxDrawdown)
	}
	if !almostEqual(report.CalmarRatio, 0.9, 1e-9) {
		t.Errorf("CalmarRatio = %v, want 0.9", report.CalmarRatio)
	}
	if report.Steps != 2 {
		t.Errorf("Steps = %d, want 2", report.Steps)
	}
}

func TestAnalyze_StrictlyDecreasing(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	equity := []core.EquityPoint{
		equityAt(t0, 10000),
		equityAt(t0.Add(1*time.Hour), 9500),
		equityAt(t0.Add(2*time.Hour), 9000),
		equityAt(t0.Add(3*time.Hour), 8500),
	}

	report, err := Analyze(equity)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Monotonic decline: the running peak never moves, so the deepest
	// drawdown is simply (last-first)/first.
	if !almostEqual(report.MaxDrawdown, -0.15, 1e-12) {
		t.Errorf("MaxDrawdown = %v, want -0.15", report.MaxDrawdown)
	}
	if math.IsNaN(report.SharpeRatio) || report.SharpeRatio >= 0 {
		t.Errorf("SharpeRatio = %v, want a negative value", report.SharpeRatio)
	}
	if !almostEqual(report.TotalReturn, -0.15, 1e-12) {
		t.Errorf("TotalReturn = %v, want -0.15", report.TotalReturn)
	}
}

func TestAnalyze_Degenerate(t *testing.T) {
	if _, err := Analyze(nil); !errors.Is(err, core.ErrDegenerateEquity) {
		t.Errorf("expected ErrDegenerateEquity for empty input, got %v", err)
	}

	one := []core.EquityPoint{equityAt(time.Now(), 10000)}
	if _, err := Analyze(one); !errors.Is(err, core.ErrDegenerateEquity) {
		t.Errorf("expected ErrDegenerateEquity for one point, got %v", err)
	}
}

func TestAnalyze_ZeroElapsedTime(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	equity := []core.EquityPoint{
		equityAt(t0, 10000),
		equityAt(t0, 10200),
	}

	report, err := Analyze(equity)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if !almostEqual(report.TotalReturn, 0.02, 1e-12) {
		t.Errorf("TotalReturn = %v, should survive zero elapsed time", report.TotalReturn)
	}
	if !math.IsNaN(report.AnnualizedReturn) {
		t.Errorf("AnnualizedReturn = %v, want NaN", report.AnnualizedReturn)
	}
	if !math.IsNaN(report.TradesPerYear) {
		t.Errorf("TradesPerYear = %v, want NaN", report.TradesPerYear)
	}
	if !math.IsNaN(report.SharpeRatio) {
		t.Errorf("SharpeRatio = %v, want NaN", report.SharpeRatio)
	}
}

func TestAnalyze_FlatEquity(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	equity := []core.EquityPoint{
		equityAt(t0, 10000),
		equityAt(t0.Add(time.Hour), 10000),
		equityAt(t0.Add(2*time.Hour), 10000),
	}

	report, err := Analyze(equity)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Zero variance kills the Sharpe ratio, nothing else.
	if !math.IsNaN(report.SharpeRatio) {
		t.Errorf("SharpeRatio = %v, want NaN with zero variance", report.SharpeRatio)
	}
	if report.TotalReturn != 0 || report.AnnualizedReturn != 0 {
		t.Errorf("returns = %v/%v, want 0/0", report.TotalReturn, report.AnnualizedReturn)
	}
	if math.IsNaN(report.TradesPerYear) {
		t.Error("TradesPerYear should stay valid")
	}
	if !math.IsNaN(report.CalmarRatio) {
		t.Errorf("CalmarRatio = %v, want NaN with no drawdown", report.CalmarRatio)
	}
}

func TestMaxDrawdown(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	equity := []core.EquityPoint{
		equityAt(t0, 10000),
		equityAt(t0.Add(1*time.Hour), 11000),
		equityAt(t0.Add(2*time.Hour), 9900),
		equityAt(t0.Add(3*time.Hour), 10500),
	}

	// Peak 11000, trough 9900.
	if dd := maxDrawdown(equity); !almostEqual(dd, -0.1, 1e-12) {
		t.Errorf("maxDrawdown = %v, want -0.1", dd)
	}
}

func TestStdev(t *testing.T) {
	if sd := stdev([]float64{1, 2, 3}); !almostEqual(sd, 1, 1e-12) {
		t.Errorf("stdev = %v, want 1", sd)
	}
	if !math.IsNaN(stdev([]float64{5})) {
		t.Error("stdev of one observation should be NaN")
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{2.346, 2.35},
		{2.344, 2.34},
		{-1.005, -1.0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); !almostEqual(got, tt.want, 1e-9) {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if !math.IsNaN(Round2(math.NaN())) {
		t.Error("Round2 should pass NaN through")
	}
}

func TestReport_Metrics(t *testing.T) {
	report := &Report{
		TotalReturn:      0.023456,
		AnnualizedReturn: 0.31,
		TradesPerYear:    12.1751,
		SharpeRatio:      1.23456,
		MaxDrawdown:      -0.0512,
		CalmarRatio:      6.054,
	}

	metrics := report.Metrics()
	names := []string{
		"Total Return (%)",
		"Annual Return (%)",
		"Sharpe Ratio",
		"Max Drawdown (%)",
		"Calmar Ratio",
		"Trades / Year",
	}
	values := []float64{2.35, 31.0, 1.23, -5.12, 6.05, 12.18}

	if len(metrics) != len(names) {
		t.Fatalf("metrics length = %d, want %d", len(metrics), len(names))
	}
	for i, m := range metrics {
		if m.Name != names[i] {
			t.Errorf("metrics[%d].Name = %q, want %q", i, m.Name, names[i])
		}
		if !almostEqual(m.Value, values[i], 1e-9) {
			t.Errorf("metrics[%d].Value = %v, want %v", i, m.Value, values[i])
		}
	}
}
