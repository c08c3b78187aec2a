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

func liveTestSymbol() model.Symbol { return model.Symbol{Name: "ETHUSDT"} }

func liveTestPosition(sym model.Symbol) model.Position {
	return model.Position{
		Signal: model.Signal{Symbol: sym, Timeframe: model.Timeframe1m, Side: model.SignalSideBuy,
			Entry: decimal.NewFromInt(100), StopLoss: decimal.NewFromInt(95)},
		InitialSize: decimal.NewFromInt(1),
		CurrSL:      decimal.NewFromInt(95),
	}
}

// TestLiveExecutorOpenReconciles verifies the live executor issues an
// OpenPosition command then reconciles via GetOpenPosition, emitting
// BrokerPositionOpened with whatever the router reports filled.
func TestLiveExecutorOpenReconciles(t *testing.T) {
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	defer b.Stop()

	sym := liveTestSymbol()
	b.OnCommand("OpenPosition", func(ctx context.Context, msg bus.Message) (any, error) { return nil, nil }, nil)
	b.OnQuery("GetOpenPosition", func(ctx context.Context, msg bus.Message) (any, error) {
		return model.Order{Status: model.OrderStatusExecuted, Type: model.OrderTypeMarket, Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(1)}, nil
	}, nil)

	l := NewLive(zap.NewNop(), sym, model.Timeframe1m)
	l.Start(b)
	defer l.Stop(b)

	opened := make(chan message.BrokerPositionOpened, 1)
	b.On("BrokerPositionOpened", func(ctx context.Context, msg bus.Message) (any, error) {
		opened <- msg.(message.BrokerPositionOpened)
		return nil, nil
	}, nil)

	b.Dispatch(message.PositionInitialized{Position: liveTestPosition(sym)})

	select {
	case ev := <-opened:
		if ev.Order.Status != model.OrderStatusExecuted {
			t.Fatalf("want EXECUTED, got %s", ev.Order.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for BrokerPositionOpened")
	}
}

// TestLiveExecutorOpenFailsWhenRouterCannotPlace verifies a broker-side
// placement failure surfaces as a BrokerPositionClosed with a zero-size
// FAILED order — the same message the position actor's OPENING -> FAILED
// transition recognizes — rather than hanging or falsely opening.
func TestLiveExecutorOpenFailsWhenRouterCannotPlace(t *testing.T) {
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	defer b.Stop()

	sym := liveTestSymbol()
	b.OnCommand("OpenPosition", func(ctx context.Context, msg bus.Message) (any, error) { return nil, nil }, nil)
	b.OnQuery("GetOpenPosition", func(ctx context.Context, msg bus.Message) (any, error) {
		return model.Order{Status: model.OrderStatusFailed}, nil
	}, nil)

	l := NewLive(zap.NewNop(), sym, model.Timeframe1m)
	l.Start(b)
	defer l.Stop(b)

	closed := make(chan message.BrokerPositionClosed, 1)
	b.On("BrokerPositionClosed", func(ctx context.Context, msg bus.Message) (any, error) {
		closed <- msg.(message.BrokerPositionClosed)
		return nil, nil
	}, nil)

	b.Dispatch(message.PositionInitialized{Position: liveTestPosition(sym)})

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

// TestLiveExecutorOpenFailsWhenFillInvalid verifies a reconciled fill that
// would leave the position invalid (take-profit on the wrong side of
// stop-loss) is routed to FAILED instead of OPEN.
func TestLiveExecutorOpenFailsWhenFillInvalid(t *testing.T) {
	b := bus.NewUnshared(zap.NewNop(), bus.Config{NumWorkers: 2})
	defer b.Stop()

	sym := liveTestSymbol()
	b.OnCommand("OpenPosition", func(ctx context.Context, msg bus.Message) (any, error) { return nil, nil }, nil)
	b.OnQuery("GetOpenPosition", func(ctx context.Context, msg bus.Message) (any, error) {
		return model.Order{Status: model.OrderStatusExecuted, Type: model.OrderTypeMarket, Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(1)}, nil
	}, nil)

	l := NewLive(zap.NewNop(), sym, model.Timeframe1m)
	l.Start(b)
	defer l.Stop(b)

	closed := make(chan message.BrokerPositionClosed, 1)
	b.On("BrokerPositionClosed", func(ctx context.Context, msg bus.Message) (any, error) {
		closed <- msg.(message.BrokerPositionClosed)
		return nil, nil
	}, nil)

	pos := liveTestPosition(sym)
	pos.OverrideTP, pos.HasOverrideTP = decimal.NewFromInt(90), true // below SL=95: invalid for LONG
	b.Dispatch(message.PositionInitialized{Position: pos})

	select {
	case ev := <-closed:
		if ev.Order.Status != model.OrderStatusFailed {
			t.Fatalf("want FAILED, got %s", ev.Order.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for BrokerPositionClosed")
	}
}
