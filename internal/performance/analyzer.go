// Package performance turns a squad's closed positions into the
// performance vector internal/strategystore clusters on: a pure function,
// no actor, no bus dependency (spec.md §9 "performance vector" contract),
// grounded on the teacher's internal/backtester/metrics.go Sharpe/drawdown
// helpers.
package performance

import (
	"math"

	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
)

// Vector is the fixed-shape performance vector StrategyStorage clusters
// and ranks on: [0] total return on account size (the ranking coordinate),
// [1] Sharpe-proxy (mean/stddev of per-trade returns), [2] max drawdown,
// [3] sign of net PnL (+1/-1, 0 when it is zero), consumed by get_top's positive_pnl filter
// as the vector's last coordinate (spec.md §6.7).
type Vector [4]float64

// Analyzer computes a Vector from an account size and a squad's closed
// positions.
type Analyzer struct{}

// Calculate ports the teacher's MetricsCalculator.Calculate return shape
// down to the four coordinates StrategyStorage needs.
func (Analyzer) Calculate(accountSize decimal.Decimal, closed []model.Position) Vector {
	if len(closed) == 0 || accountSize.IsZero() {
		return Vector{}
	}

	returns := make([]float64, 0, len(closed))
	var totalPnL decimal.Decimal
	for _, pos := range closed {
		pnl := pos.PnL()
		totalPnL = totalPnL.Add(pnl)
		returns = append(returns, pnl.Div(accountSize).InexactFloat64())
	}

	totalReturn := totalPnL.Div(accountSize).InexactFloat64()
	mean, stddev := meanStdDev(returns)
	sharpe := 0.0
	if stddev > 0 {
		sharpe = mean / stddev
	}

	sign := 1.0
	if totalPnL.Sign() < 0 {
		sign = -1.0
	} else if totalPnL.IsZero() {
		sign = 0
	}

	return Vector{totalReturn, sharpe, maxDrawdown(returns), sign}
}

func meanStdDev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}

// maxDrawdown runs a running-equity walk over the per-trade return series
// and returns the largest peak-to-trough fraction observed.
func maxDrawdown(returns []float64) float64 {
	equity := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
