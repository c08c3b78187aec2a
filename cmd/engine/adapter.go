package main

import (
	"context"
	"errors"

	"github.com/atlas-desktop/squad-engine/internal/exchange"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
)

var errNoAdapter = errors.New("engine: no exchange adapter configured")

// unconfiguredAdapter satisfies exchange.Adapter without talking to a real
// broker. Concrete adapters (Binance, Bybit, ...) are out of scope for this
// core (internal/exchange/adapter.go's doc comment); every call here wraps
// exchange.Transient so WithRetry's backoff path still runs the same as it
// would against a flaky broker, and ErrUnavailable eventually surfaces
// exactly as it would in production once a real adapter is swapped in.
type unconfiguredAdapter struct{}

func (unconfiguredAdapter) err() error {
	return &exchange.Transient{Err: errNoAdapter}
}

func (a unconfiguredAdapter) FetchFutureSymbols(context.Context) ([]model.Symbol, error) {
	return nil, a.err()
}

func (a unconfiguredAdapter) FetchAccountBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, a.err()
}

func (a unconfiguredAdapter) FetchPosition(context.Context, model.Symbol, model.PositionSide) (*exchange.OpenPositionInfo, error) {
	return nil, a.err()
}

func (a unconfiguredAdapter) FetchTrade(context.Context, model.Symbol) (*exchange.Trade, error) {
	return nil, a.err()
}

func (a unconfiguredAdapter) CreateLimitOrder(context.Context, model.Symbol, model.PositionSide, decimal.Decimal, decimal.Decimal) (string, error) {
	return "", a.err()
}

func (a unconfiguredAdapter) HasOrder(context.Context, string, model.Symbol) (bool, error) {
	return false, a.err()
}

func (a unconfiguredAdapter) ClosePosition(context.Context, model.Symbol, model.PositionSide) error {
	return a.err()
}

func (a unconfiguredAdapter) UpdateSymbolSettings(context.Context, model.Symbol, string, string, int) error {
	return a.err()
}

func (a unconfiguredAdapter) FetchOHLCV(context.Context, model.Symbol, model.Timeframe, int64, int) ([]model.OHLCV, error) {
	return nil, a.err()
}

func (a unconfiguredAdapter) FetchOrderBook(context.Context, model.Symbol) (*exchange.OrderBook, error) {
	return nil, a.err()
}
