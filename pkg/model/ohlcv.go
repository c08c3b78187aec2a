package model

import "github.com/shopspring/decimal"

// OHLCV is one candlestick. Timestamp is the bar's ms-epoch open time.
type OHLCV struct {
	Timestamp int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Valid reports the bar's shape invariants from spec.md §3.
func (o OHLCV) Valid() bool {
	if o.Volume.Sign() < 0 {
		return false
	}
	if o.Low.GreaterThan(o.High) {
		return false
	}
	if o.Open.LessThan(o.Low) || o.Open.GreaterThan(o.High) {
		return false
	}
	if o.Close.LessThan(o.Low) || o.Close.GreaterThan(o.High) {
		return false
	}
	return true
}

// TypicalPrice is (high+low+close)/3, rounded to the given price precision.
// Used as Position.CurrPrice per spec.md §4.4.
func (o OHLCV) TypicalPrice(precision int32) decimal.Decimal {
	three := decimal.NewFromInt(3)
	sum := o.High.Add(o.Low).Add(o.Close)
	return sum.DivRound(three, precision+4).Round(precision)
}
