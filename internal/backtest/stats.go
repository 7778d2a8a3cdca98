package backtest

import (
	"fmt"
	"math"

	"github.com/mhollert/bret/internal/core"
)

const secondsPerYear = 365.25 * 86400

// Report holds performance metrics derived from an equity sequence.
// Fields are fractions at full precision; Metrics applies reporting rounding.
type Report struct {
	TotalReturn      float64
	AnnualizedReturn float64
	TradesPerYear    float64
	SharpeRatio      float64
	MaxDrawdown      float64 // zero or negative
	CalmarRatio      float64
	Years            float64
	Steps            int // resolved trades behind the sequence
}

// Metric is one named, report-ready value
type Metric struct {
	Name  string
	Value float64
}

// Metrics returns the ordered, report-ready metric set. Percentage values are
// scaled by 100 and everything is rounded to 2 decimals; the struct fields
// keep full precision.
func (r *Report) Metrics() []Metric {
	return []Metric{
		{Name: "Total Return (%)", Value: Round2(r.TotalReturn * 100)},
		{Name: "Annual Return (%)", Value: Round2(r.AnnualizedReturn * 100)},
		{Name: "Sharpe Ratio", Value: Round2(r.SharpeRatio)},
		{Name: "Max Drawdown (%)", Value: Round2(r.MaxDrawdown * 100)},
		{Name: "Calmar Ratio", Value: Round2(r.CalmarRatio)},
		{Name: "Trades / Year", Value: Round2(r.TradesPerYear)},
	}
}

// Analyze computes performance metrics from an ordered equity sequence of at
// least two points. Degenerate conditions such as zero elapsed time, zero
// return variance or no drawdown turn the affected metric into NaN; the rest
// of the report stays valid.
func Analyze(equity []core.EquityPoint) (*Report, error) {
	if len(equity) < 2 {
		return nil, core.WrapError(core.ErrDegenerateEquity, fmt.Errorf("%d points", len(equity)))
	}

	steps := len(equity) - 1
	returns := make([]float64, steps)
	for k := 1; k < len(equity); k++ {
		returns[k-1] = equity[k].Balance/equity[k-1].Balance - 1
	}

	first := equity[0]
	last := equity[len(equity)-1]

	totalReturn := last.Balance/first.Balance - 1
	years := last.Time.Sub(first.Time).Seconds() / secondsPerYear

	annualized := math.NaN()
	tradesPerYear := math.NaN()
	if years > 0 {
		annualized = math.Pow(1+totalReturn, 1/years) - 1
		tradesPerYear = float64(steps) / years
	}

	// NaN trades-per-year propagates into the annualization term.
	sharpe := math.NaN()
	if sd := stdev(returns); sd > 0 {
		sharpe = mean(returns) / sd * math.Sqrt(tradesPerYear)
	}

	maxDD := maxDrawdown(equity)

	calmar := math.NaN()
	if maxDD < 0 {
		calmar = annualized / math.Abs(maxDD)
	}

	return &Report{
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		TradesPerYear:    tradesPerYear,
		SharpeRatio:      sharpe,
		MaxDrawdown:      maxDD,
		CalmarRatio:      calmar,
		Years:            years,
		Steps:            steps,
	}, nil
}

// Round2 rounds to 2 decimal places for reporting
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation, NaN below two observations
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	var variance float64
	for _, x := range xs {
		variance += (x - m) * (x - m)
	}
	return math.Sqrt(variance / float64(len(xs)-1))
}

// maxDrawdown is the deepest decline from the running equity peak
func maxDrawdown(equity []core.EquityPoint) float64 {
	var maxDD float64
	peak := equity[0].Balance
	for _, p := range equity {
		if p.Balance > peak {
			peak = p.Balance
		}
		if dd := (p.Balance - peak) / peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
