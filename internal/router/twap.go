package router

import (
	"context"

	"github.com/atlas-desktop/squad-engine/internal/exchange"
	"github.com/shopspring/decimal"
)

// PriceGenerator yields n successive reference entry prices sampled from an
// order book (spec.md §4.6 "a TWAP generator over the current order book",
// glossary "TWAP"). Grounded on original_source/sor/_router.py's
// self.entry_price.calculate(symbol, exchange) generator.
type PriceGenerator interface {
	Prices(ctx context.Context, ob *exchange.OrderBook, n int) []decimal.Decimal
}

// TWAP interpolates n prices between the best bid and best ask of one order
// book snapshot. It approximates a time-weighted walk across the spread
// without needing repeated book fetches per tick.
type TWAP struct{}

func (TWAP) Prices(_ context.Context, ob *exchange.OrderBook, n int) []decimal.Decimal {
	if n <= 0 || ob == nil || len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return nil
	}
	bid := ob.Bids[0].Price
	ask := ob.Asks[0].Price
	if n == 1 {
		return []decimal.Decimal{bid.Add(ask).Div(decimal.NewFromInt(2))}
	}

	spread := ask.Sub(bid)
	steps := decimal.NewFromInt(int64(n - 1))
	prices := make([]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		weight := decimal.NewFromInt(int64(i)).Div(steps)
		prices[i] = bid.Add(spread.Mul(weight))
	}
	return prices
}
