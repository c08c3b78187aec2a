// Package exchange defines the inbound contract the core consumes from a
// broker integration (spec.md §6 "Exchange adapter"). Concrete adapters
// (Binance, Bybit, ...) are out of scope for the core; only the interface,
// its retry wrapper and its rate-limiting wrapper live here.
package exchange

import (
	"context"

	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
)

// OpenPositionInfo is the broker's view of an open position, as returned by
// fetch_position.
type OpenPositionInfo struct {
	EntryPrice   decimal.Decimal
	PositionSize decimal.Decimal
	StopLoss     decimal.Decimal
	TakeProfit   decimal.Decimal
}

// Trade is a single executed fill, as returned by fetch_trade.
type Trade struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Adapter is the exchange adapter's inbound contract (spec.md §6).
// Implementations own their own retry for idempotent read calls via
// WithRetry; CreateLimitOrder/ClosePosition are never retried by the core
// (spec.md §9 "Retry policy belongs to adapters").
type Adapter interface {
	FetchFutureSymbols(ctx context.Context) ([]model.Symbol, error)
	FetchAccountBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	FetchPosition(ctx context.Context, symbol model.Symbol, side model.PositionSide) (*OpenPositionInfo, error)
	FetchTrade(ctx context.Context, symbol model.Symbol) (*Trade, error)
	CreateLimitOrder(ctx context.Context, symbol model.Symbol, side model.PositionSide, size, price decimal.Decimal) (string, error)
	HasOrder(ctx context.Context, orderID string, symbol model.Symbol) (bool, error)
	ClosePosition(ctx context.Context, symbol model.Symbol, side model.PositionSide) error
	UpdateSymbolSettings(ctx context.Context, symbol model.Symbol, positionMode, marginMode string, leverage int) error
	FetchOHLCV(ctx context.Context, symbol model.Symbol, timeframe model.Timeframe, sinceMs int64, limit int) ([]model.OHLCV, error)
}

// OrderBookLevel is one price/size rung of an order book snapshot, used by
// the TWAP entry-price generator (spec.md §4.6).
type OrderBookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is a best-effort snapshot of both sides of the book.
type OrderBook struct {
	Bids []OrderBookLevel
	Asks []OrderBookLevel
}

// OrderBookSource is the narrow slice of Adapter the TWAP generator needs;
// kept separate so the router can be tested against a stub without a full
// Adapter implementation.
type OrderBookSource interface {
	FetchOrderBook(ctx context.Context, symbol model.Symbol) (*OrderBook, error)
}

// backoffMultiplier is the exponential factor applied to RetryPolicy's
// BaseBackoff between attempts; unlike MaxRetries/BaseBackoff it isn't
// exposed as a config knob (spec.md §6 names only the retry count and
// starting delay).
const backoffMultiplier = 2.0
