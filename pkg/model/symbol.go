// Package model provides the immutable domain values shared by every squad
// actor: symbols, timeframes, bars, signals, orders and positions.
package model

import "github.com/shopspring/decimal"

// Symbol identifies a tradable future and the precision/fee rules that apply
// to it.
type Symbol struct {
	Name               string
	MinPositionSize    decimal.Decimal
	PositionPrecision  int32
	PricePrecision     int32
	TakerFee           decimal.Decimal
	MakerFee           decimal.Decimal
}

// Valid reports whether the symbol satisfies its invariants: precisions are
// non-negative and fees are non-negative.
func (s Symbol) Valid() bool {
	return s.PositionPrecision >= 0 && s.PricePrecision >= 0 &&
		s.TakerFee.Sign() >= 0 && s.MakerFee.Sign() >= 0
}

func (s Symbol) String() string { return s.Name }

// Timeframe is an enumerated bar length.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe3m  Timeframe = "3m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
)

// IntervalCode is the websocket kline interval code for the timeframe
// (spec.md §6: "Interval codes: 1,3,5,15,60,240").
func (t Timeframe) IntervalCode() string {
	switch t {
	case Timeframe1m:
		return "1"
	case Timeframe3m:
		return "3"
	case Timeframe5m:
		return "5"
	case Timeframe15m:
		return "15"
	case Timeframe1h:
		return "60"
	case Timeframe4h:
		return "240"
	default:
		return ""
	}
}
