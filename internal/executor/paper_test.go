package executor

import (
	"context"
	"testing"
	"time"

	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func paperTestSymbol() model.Symbol {
	return model.Symbol{Name: "BTCUSDT", MinPositionSize: d("0.001"), PositionPrecision: 3, TakerFee: d("0.0004")}
}

func paperTestPosition(sym model.Symbol, tp decimal.Decimal, hasTP bool) model.Position {
	return model.Position{
		Signal: model.Signal{Symbol: sym, Timeframe: model.Timeframe1m, Side: model.SignalSideBuy,
			Entry: d("100"), StopLoss: d("95")},
		SignalRisk:  model.SignalRisk{HasTP: hasTP, TP: tp},
		InitialSize: d("1"),
		CurrSL:      d("95"),
	}
}

func newPaperBus(t *testing.T) *bus.Bus {
	t.Helper()
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	t.Cleanup(b.Stop)
	return b
}

// TestPaperFillEntryOpensValidPosition verifies a structurally valid fill
// (TP on the correct side of SL) opens the position.
func TestPaperFillEntryOpensValidPosition(t *testing.T) {
	b := newPaperBus(t)
	sym := paperTestSymbol()

	p := NewPaper(zap.NewNop(), sym, model.Timeframe1m)
	p.Start(b)
	defer p.Stop(b)

	opened := make(chan message.BrokerPositionOpened, 1)
	b.On("BrokerPositionOpened", func(_ context.Context, msg bus.Message) (any, error) {
		opened <- msg.(message.BrokerPositionOpened)
		return nil, nil
	}, nil)

	b.Dispatch(message.NewMarketDataReceived{
		Symbol: sym, Timeframe: model.Timeframe1m, Closed: true,
		OHLCV: model.OHLCV{Open: d("100"), High: d("101"), Low: d("99"), Close: d("100")},
	})
	b.Dispatch(message.PositionInitialized{Position: paperTestPosition(sym, d("110"), true)})

	select {
	case ev := <-opened:
		if ev.Order.Status != model.OrderStatusExecuted {
			t.Fatalf("want EXECUTED, got %s", ev.Order.Status)
		}
		if !ev.Order.Size.Equal(d("1")) {
			t.Fatalf("want size clamped/rounded to 1, got %s", ev.Order.Size)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for BrokerPositionOpened")
	}
}

// TestPaperFillEntryFailsInvalidPosition verifies a fill that would leave
// take-profit on the wrong side of stop-loss (TP <= SL for a LONG) reports
// a failed open instead of opening the position.
func TestPaperFillEntryFailsInvalidPosition(t *testing.T) {
	b := newPaperBus(t)
	sym := paperTestSymbol()

	p := NewPaper(zap.NewNop(), sym, model.Timeframe1m)
	p.Start(b)
	defer p.Stop(b)

	closed := make(chan message.BrokerPositionClosed, 1)
	b.On("BrokerPositionClosed", func(_ context.Context, msg bus.Message) (any, error) {
		closed <- msg.(message.BrokerPositionClosed)
		return nil, nil
	}, nil)

	b.Dispatch(message.NewMarketDataReceived{
		Symbol: sym, Timeframe: model.Timeframe1m, Closed: true,
		OHLCV: model.OHLCV{Open: d("100"), High: d("101"), Low: d("99"), Close: d("100")},
	})
	// TP below SL for a LONG: invalid regardless of fill price.
	b.Dispatch(message.PositionInitialized{Position: paperTestPosition(sym, d("90"), true)})

	select {
	case ev := <-closed:
		if ev.Order.Status != model.OrderStatusFailed {
			t.Fatalf("want FAILED, got %s", ev.Order.Status)
		}
		if !ev.Order.Size.IsZero() {
			t.Fatalf("want zero-size order, got %s", ev.Order.Size)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for BrokerPositionClosed")
	}
}
