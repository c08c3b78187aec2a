package router

import (
	"context"
	"testing"
	"time"

	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/exchange"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixedPrices hands back a fixed price list regardless of n, so tests can
// pin the exact TWAP ticks a scenario samples.
type fixedPrices struct{ prices []decimal.Decimal }

func (f fixedPrices) Prices(context.Context, *exchange.OrderBook, int) []decimal.Decimal {
	return f.prices
}

// stubAdapter is a minimal exchange.Adapter recording every order placed.
type stubAdapter struct {
	orders       []decimal.Decimal
	createErr    error
	closeCalled  bool
	settingsDone bool
}

func (s *stubAdapter) FetchFutureSymbols(context.Context) ([]model.Symbol, error) { return nil, nil }
func (s *stubAdapter) FetchAccountBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (s *stubAdapter) FetchPosition(context.Context, model.Symbol, model.PositionSide) (*exchange.OpenPositionInfo, error) {
	return nil, nil
}
func (s *stubAdapter) FetchTrade(context.Context, model.Symbol) (*exchange.Trade, error) {
	return nil, nil
}
func (s *stubAdapter) CreateLimitOrder(_ context.Context, _ model.Symbol, _ model.PositionSide, _, price decimal.Decimal) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.orders = append(s.orders, price)
	return "order-1", nil
}
func (s *stubAdapter) HasOrder(context.Context, string, model.Symbol) (bool, error) { return true, nil }
func (s *stubAdapter) ClosePosition(context.Context, model.Symbol, model.PositionSide) error {
	s.closeCalled = true
	return nil
}
func (s *stubAdapter) UpdateSymbolSettings(context.Context, model.Symbol, string, string, int) error {
	s.settingsDone = true
	return nil
}
func (s *stubAdapter) FetchOHLCV(context.Context, model.Symbol, model.Timeframe, int64, int) ([]model.OHLCV, error) {
	return nil, nil
}

type stubOrderBook struct{}

func (stubOrderBook) FetchOrderBook(context.Context, model.Symbol) (*exchange.OrderBook, error) {
	return &exchange.OrderBook{
		Bids: []exchange.OrderBookLevel{{Price: dec("99")}},
		Asks: []exchange.OrderBookLevel{{Price: dec("101")}},
	}, nil
}

func testSymbol() model.Symbol {
	return model.Symbol{Name: "BTCUSDT", MinPositionSize: dec("1"), PositionPrecision: 3}
}

func testPosition(entry, sl decimal.Decimal) model.Position {
	return model.Position{
		Signal:      model.Signal{Symbol: testSymbol(), Side: model.SignalSideBuy, Entry: entry, StopLoss: sl},
		InitialSize: dec("3"),
		CurrSL:      sl,
	}
}

// noSleep replaces the chunk-pacing primitive so tests run instantly.
func noSleep(context.Context, time.Duration) bool { return true }

// S5 (spec.md §8): desired entry 100, SL 99, threshold 0.5; every sampled
// tick (99.4, 99.3, 99.2) breaches; max_order_breach=3 aborts the open
// without placing a single order.
func TestOpenPositionAbortsOnRepeatedRiskBreach(t *testing.T) {
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	defer b.Stop()

	adapter := &stubAdapter{}
	gen := fixedPrices{prices: []decimal.Decimal{dec("99.4"), dec("99.3"), dec("99.2")}}
	a := New(zap.NewNop(), adapter, stubOrderBook{}, gen, Config{
		EntryTimeout:         time.Millisecond,
		StopLossThreshold:    dec("0.5"),
		MaxOrderSlice:        5,
		MaxOrderBreach:       3,
		MaxOpenOrderAttempts: 5,
	})
	a.sleep = noSleep
	a.Start(b)
	defer a.Stop(b)

	pos := testPosition(dec("100"), dec("99"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Execute(ctx, message.OpenPosition{Position: pos}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(adapter.orders) != 0 {
		t.Fatalf("want no orders placed, got %d", len(adapter.orders))
	}
}

// Every sampled tick clears the breach guard, so the router places one
// order per slice and stops once all chunks are filled.
func TestOpenPositionPlacesAllChunks(t *testing.T) {
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	defer b.Stop()

	adapter := &stubAdapter{}
	gen := fixedPrices{prices: []decimal.Decimal{dec("100"), dec("100.1"), dec("100.2"), dec("100.3")}}
	a := New(zap.NewNop(), adapter, stubOrderBook{}, gen, Config{
		EntryTimeout:         time.Millisecond,
		StopLossThreshold:    dec("0.01"),
		MaxOrderSlice:        3,
		MaxOrderBreach:       3,
		MaxOpenOrderAttempts: 5,
	})
	a.sleep = noSleep
	a.Start(b)
	defer a.Stop(b)

	pos := testPosition(dec("100"), dec("95"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Execute(ctx, message.OpenPosition{Position: pos}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(adapter.orders) != 3 {
		t.Fatalf("want 3 chunks placed, got %d", len(adapter.orders))
	}
}

func TestClosePositionIssuesMarketClose(t *testing.T) {
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	defer b.Stop()

	adapter := &stubAdapter{}
	a := New(zap.NewNop(), adapter, stubOrderBook{}, nil, Config{})
	a.Start(b)
	defer a.Stop(b)

	pos := testPosition(dec("100"), dec("95"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Execute(ctx, message.ClosePosition{Position: pos, ExitPrice: dec("100")}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !adapter.closeCalled {
		t.Fatal("want ClosePosition called on adapter")
	}
}

func TestGetBalancePassesThrough(t *testing.T) {
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	defer b.Stop()

	adapter := &stubAdapter{}
	a := New(zap.NewNop(), adapter, stubOrderBook{}, nil, Config{})
	a.Start(b)
	defer a.Stop(b)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := b.Query(ctx, message.GetBalance{Currency: "USDT"}); err != nil {
		t.Fatalf("query: %v", err)
	}
}
