// Package executor implements the paper and live executor actors (C5):
// given a position lifecycle message and the latest bar for its squad, it
// computes a fill price and price according to spec.md §4.5's intrabar
// policy, then emits BrokerPositionOpened/BrokerPositionClosed.
package executor

import (
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
)

// direction is the intrabar path inferred from a bar's open, used to decide
// which side of the bar a requested price can plausibly have traded through.
type direction int

const (
	directionOHLC direction = iota
	directionOLHC
)

// barDirection reports OHLC when the open is closer to the high than to the
// low, else OLHC (spec.md §4.5).
func barDirection(bar model.OHLCV) direction {
	toHigh := bar.High.Sub(bar.Open).Abs()
	toLow := bar.Open.Sub(bar.Low).Abs()
	if toHigh.LessThan(toLow) {
		return directionOHLC
	}
	return directionOLHC
}

func within(price, lo, hi decimal.Decimal) bool {
	return price.GreaterThanOrEqual(lo) && price.LessThanOrEqual(hi)
}

// fillEntry computes a single fill price for a requested entry/exit price
// against one bar, per spec.md §4.5:
//   - LONG + OHLC: fill at requested if within [low, high], else at high.
//   - SHORT + OLHC: fill at requested if within [low, high], else at low.
//   - Otherwise: fill at close.
func fillEntry(side model.PositionSide, requested decimal.Decimal, bar model.OHLCV) decimal.Decimal {
	dir := barDirection(bar)
	switch {
	case side == model.PositionSideLong && dir == directionOHLC:
		if within(requested, bar.Low, bar.High) {
			return requested
		}
		return bar.High
	case side == model.PositionSideShort && dir == directionOLHC:
		if within(requested, bar.Low, bar.High) {
			return requested
		}
		return bar.Low
	default:
		return bar.Close
	}
}

// fillExit computes the exit fill price: candidates are the requested order
// price, the take-profit level and the stop-loss level, each run through
// fillEntry against the bar, then the worst-for-trader candidate wins (min
// for LONG exits, max for SHORT exits) per spec.md §4.5.
func fillExit(side model.PositionSide, requested, tp, sl decimal.Decimal, bar model.OHLCV) decimal.Decimal {
	candidates := []decimal.Decimal{
		fillEntry(side, requested, bar),
		fillEntry(side, tp, bar),
		fillEntry(side, sl, bar),
	}

	worst := candidates[0]
	for _, c := range candidates[1:] {
		if side == model.PositionSideLong {
			if c.LessThan(worst) {
				worst = c
			}
		} else if c.GreaterThan(worst) {
			worst = c
		}
	}
	return worst
}

// entrySize clamps a requested entry size to the symbol's minimum position
// size and rounds to its position precision, matching the original paper
// executor's entry_order (round(max(initial_size, min_position_size),
// position_precision)).
func entrySize(symbol model.Symbol, requested decimal.Decimal) decimal.Decimal {
	size := requested
	if size.LessThan(symbol.MinPositionSize) {
		size = symbol.MinPositionSize
	}
	return size.Round(symbol.PositionPrecision)
}

// fee is size*price*rate; takerRate applies to market fills, makerRate to a
// resting limit fill (spec.md §4.5).
func fee(size, price, rate decimal.Decimal) decimal.Decimal {
	return size.Mul(price).Mul(rate)
}

func feeRate(symbol model.Symbol, orderType model.OrderType) decimal.Decimal {
	if orderType == model.OrderTypeLimit {
		return symbol.MakerFee
	}
	return symbol.TakerFee
}
