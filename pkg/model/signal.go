package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Signal is an immutable trading signal produced by the strategy generator
// collaborator. Identity is (Symbol, Timeframe, Strategy, OHLCV.Timestamp,
// Side) per spec.md §3.
type Signal struct {
	Symbol    Symbol
	Timeframe Timeframe
	Side      SignalSide
	Entry     decimal.Decimal
	StopLoss  decimal.Decimal
	OHLCV     OHLCV
	Strategy  Strategy
}

// Key returns the signal's dedup/identity key, suitable for a bus message's
// meta.Key when events sharing a signal should coalesce.
func (s Signal) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", s.Symbol.Name, s.Timeframe, s.Strategy, s.OHLCV.Timestamp, s.Side)
}
