package model

import "github.com/shopspring/decimal"

// PositionRiskType is the classification produced by the risk component for
// each bar (spec.md glossary: "Risk type").
type PositionRiskType string

const (
	PositionRiskNone    PositionRiskType = "NONE"
	PositionRiskTP      PositionRiskType = "TP"
	PositionRiskSL      PositionRiskType = "SL"
	PositionRiskExpired PositionRiskType = "EXPIRED"
)

// TechAnalysis is the technical-analysis collaborator that may further
// ratchet a stop-loss toward a trailing low/high (spec.md §4.4 step 3). It is
// the one piece of indicator math the core keeps a direct hook for; its
// internals (ATR, swing lookback, ...) are out of scope.
type TechAnalysis interface {
	// TrailingFloor returns a candidate SL tightened from the trailing
	// price action. Implementations only ever propose a tighter value; the
	// ladder still takes max/min against the current SL so a floor can
	// never loosen the stop.
	TrailingFloor(side PositionSide, bars []OHLCV, currentSL decimal.Decimal) (decimal.Decimal, bool)
}

// NoOpTechAnalysis never proposes a floor; it is the default when no TA
// collaborator is wired, and what the backtester uses when indicator
// plumbing is out of scope for a run.
type NoOpTechAnalysis struct{}

func (NoOpTechAnalysis) TrailingFloor(PositionSide, []OHLCV, decimal.Decimal) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

// PositionRisk is the live risk state of a position: the last-seen bar and
// the current classification.
type PositionRisk struct {
	LastBar OHLCV
	Type    PositionRiskType
}

// NewPositionRisk seeds risk state from the signal bar that opened the
// position.
func NewPositionRisk(signalBar OHLCV) PositionRisk {
	return PositionRisk{LastBar: signalBar, Type: PositionRiskNone}
}

// Next advances risk state with a new bar, without yet reassessing type
// (the caller reassesses via Assess once the break-even ladder has produced
// the candidate next SL).
func (r PositionRisk) Next(bar OHLCV) PositionRisk {
	return PositionRisk{LastBar: bar, Type: r.Type}
}

// Assess classifies the bar just closed against (side, tp, sl, openTimestamp,
// expiration), per spec.md §4.4 step 4: expiration first, then SL/TP in the
// order appropriate to the side, else NONE.
func (r PositionRisk) Assess(side PositionSide, tp, sl decimal.Decimal, openTimestamp, expiration int64) PositionRisk {
	bar := r.LastBar

	if bar.Timestamp-openTimestamp >= expiration {
		return PositionRisk{LastBar: bar, Type: PositionRiskExpired}
	}

	switch side {
	case PositionSideLong:
		if bar.Low.LessThanOrEqual(sl) {
			return PositionRisk{LastBar: bar, Type: PositionRiskSL}
		}
		if bar.High.GreaterThanOrEqual(tp) {
			return PositionRisk{LastBar: bar, Type: PositionRiskTP}
		}
	case PositionSideShort:
		if bar.High.GreaterThanOrEqual(sl) {
			return PositionRisk{LastBar: bar, Type: PositionRiskSL}
		}
		if bar.Low.LessThanOrEqual(tp) {
			return PositionRisk{LastBar: bar, Type: PositionRiskTP}
		}
	}

	return PositionRisk{LastBar: bar, Type: PositionRiskNone}
}

// ExitPrice resolves the price an exit order should request given the risk
// classification: TP/SL use their respective levels, EXPIRED uses the bar's
// close, NONE falls back to close as a defensive default.
func (r PositionRisk) ExitPrice(side PositionSide, tp, sl decimal.Decimal) decimal.Decimal {
	switch r.Type {
	case PositionRiskTP:
		return tp
	case PositionRiskSL:
		return sl
	default:
		return r.LastBar.Close
	}
}
